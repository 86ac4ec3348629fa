//go:build !linux

package reactor

import (
	"fmt"
	"os"
)

// UringReactor is unavailable outside Linux; io_uring is a Linux-only
// facility.
type UringReactor struct{}

// New always fails on non-Linux platforms.
func New(file *os.File, queueDepth int) (*UringReactor, error) {
	return nil, fmt.Errorf("reactor: io_uring completion reactor is only supported on Linux")
}
