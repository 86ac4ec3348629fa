// Package bench holds the error kinds shared across the core packages.
// It exists so pkg/plan, pkg/trial, pkg/offsets, and pkg/fileprep can all
// produce and recognize the same error identities without importing each
// other.
package bench

import (
	"errors"
	"fmt"
)

// Kind identifies the semantic category of a core error.
type Kind int

const (
	// InvalidPlan: empty workloads, or any workload field outside its
	// constraint.
	InvalidPlan Kind = iota
	// InvalidWorkload: bypass-cache alignment violated, or region smaller
	// than one block.
	InvalidWorkload
	// PrepareFailed: the test file could not be created, sized, or
	// materialized.
	PrepareFailed
	// IoSubmit: a submission failed for a reason other than "pending".
	IoSubmit
	// IoReap: a completion reap failed for a reason other than timeout or
	// cancellation.
	IoReap
	// IoAborted: a completion was cancelled. Non-fatal on drain paths.
	IoAborted
	// Cancelled: the run's cancellation token fired.
	Cancelled
	// DrainTimeout: the 5-second drain bound was exceeded. Warning, not
	// fatal — a result is still produced.
	DrainTimeout
)

func (k Kind) String() string {
	switch k {
	case InvalidPlan:
		return "InvalidPlan"
	case InvalidWorkload:
		return "InvalidWorkload"
	case PrepareFailed:
		return "PrepareFailed"
	case IoSubmit:
		return "IoSubmit"
	case IoReap:
		return "IoReap"
	case IoAborted:
		return "IoAborted"
	case Cancelled:
		return "Cancelled"
	case DrainTimeout:
		return "DrainTimeout"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// errors.As without string matching.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error with no underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error around an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}
