//go:build linux

package reactor

import (
	"errors"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/godzie44/go-uring/uring"

	"github.com/coreio-bench/diskbench/pkg/bench"
)

// pollInterval bounds how finely Reap re-checks for completions while
// waiting out its timeout. It trades a little latency for staying on a
// single goroutine: the executor thread that submits is the same one
// that reaps, avoiding concurrent access to the ring's submission and
// completion queues.
const pollInterval = time.Millisecond

// UringReactor is the Linux completion reactor backend, built on
// io_uring via godzie44/go-uring.
type UringReactor struct {
	ring *uring.Ring
	fd   uintptr

	mu      sync.Mutex
	pending map[uint64]struct{}
}

// New opens an io_uring instance with the given submission queue depth
// against file.
func New(file *os.File, queueDepth int) (*UringReactor, error) {
	ring, err := uring.New(uint32(queueDepth))
	if err != nil {
		return nil, bench.Wrap(bench.IoSubmit, "failed to set up io_uring", err)
	}
	return &UringReactor{
		ring:    ring,
		fd:      file.Fd(),
		pending: make(map[uint64]struct{}, queueDepth),
	}, nil
}

// Submit queues a read or write SQE carrying handle as its user data. It
// does not itself enter the kernel; that happens lazily on the next Reap,
// matching the QueueSQE/SubmitAndWaitCQEvents split used elsewhere in this package.
func (r *UringReactor) Submit(handle uint64, isWrite bool, buf []byte, offset int64) error {
	var op uring.Operation
	if isWrite {
		op = uring.Write(r.fd, buf, uint64(offset))
	} else {
		op = uring.Read(r.fd, buf, uint64(offset))
	}
	if err := r.ring.QueueSQE(op, 0, handle); err != nil {
		return bench.Wrap(bench.IoSubmit, "queue sqe", err)
	}
	r.mu.Lock()
	r.pending[handle] = struct{}{}
	r.mu.Unlock()
	return nil
}

// Reap flushes any queued submissions into the kernel and drains
// completions into batch, waiting up to timeout for at least one. A
// timeout with nothing ready returns (0, nil); a cancelled request
// surfaces as an IoAborted Completion.Err, not a function error.
func (r *UringReactor) Reap(batch []Completion, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	n := 0
	for {
		cqe, err := r.ring.SubmitAndWaitCQEvents(0)
		if err != nil && !isEINTR(err) {
			return n, bench.Wrap(bench.IoReap, "submit/reap", err)
		}
		for cqe != nil && n < len(batch) {
			batch[n] = r.toCompletion(cqe)
			r.ring.SeenCQE(cqe)
			n++
			cqe, _ = r.ring.PeekCQE()
		}
		if n > 0 {
			return n, nil
		}
		if time.Now().After(deadline) {
			return 0, nil
		}
		time.Sleep(pollInterval)
	}
}

func (r *UringReactor) toCompletion(cqe *uring.CQEvent) Completion {
	r.mu.Lock()
	delete(r.pending, cqe.UserData)
	r.mu.Unlock()

	if cqe.Res < 0 {
		errno := syscall.Errno(-cqe.Res)
		if errno == syscall.ECANCELED {
			return Completion{Handle: cqe.UserData, Err: bench.New(bench.IoAborted, "submission cancelled")}
		}
		return Completion{Handle: cqe.UserData, Err: bench.Wrap(bench.IoReap, "completion error", errno)}
	}
	return Completion{Handle: cqe.UserData, Bytes: cqe.Res}
}

// CancelAll best-effort cancels every handle this reactor believes is
// still outstanding.
func (r *UringReactor) CancelAll() error {
	r.mu.Lock()
	handles := make([]uint64, 0, len(r.pending))
	for h := range r.pending {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		op := uring.Cancel(h, 0)
		_ = r.ring.QueueSQE(op, 0, h)
	}
	_, _ = r.ring.SubmitAndWaitCQEvents(0)
	return nil
}

// Close releases the ring.
func (r *UringReactor) Close() error {
	return r.ring.Close()
}

func isEINTR(err error) bool {
	if err == nil {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINTR
	}
	return false
}
