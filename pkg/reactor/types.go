// Package reactor is a thin façade over an OS completion queue: a
// non-blocking submit, a blocking-with-timeout reap, and a best-effort
// cancel_all. Completions are delivered in no particular order; the only
// mapping the hot path needs is handle -> slot, which lives in
// pkg/slotpool, not here.
package reactor

import "time"

// Completion reports one finished submission.
type Completion struct {
	Handle    uint64
	Bytes     int64
	Err       error
}

// Reactor submits and reaps asynchronous, overlapped I/O against one open
// file.
type Reactor interface {
	// Submit is non-blocking initiation. A nil return means the request is
	// now pending; the OS will report its completion via Reap. Any other
	// error is an IoSubmit failure and the caller must not treat the
	// request as pending.
	Submit(handle uint64, isWrite bool, buf []byte, offset int64) error

	// Reap waits up to timeout for one or more completions, writing them
	// into batch and returning the count drained. A timeout with no
	// completions returns (0, nil).
	Reap(batch []Completion, timeout time.Duration) (int, error)

	// CancelAll makes a best-effort attempt to cancel every outstanding
	// request on the reactor's file.
	CancelAll() error

	// Close releases the reactor's OS resources. Outstanding requests
	// should be drained or cancelled first.
	Close() error
}
