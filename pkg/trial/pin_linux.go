//go:build linux

package trial

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// applyThreadHints locks the calling goroutine to its OS thread (a trial
// always drives its executor loop from one dedicated thread) and, if
// requested, pins that thread to a core and raises its scheduling
// priority. Both are best-effort: failures are not reported, since a
// trial can still produce valid results without them.
func applyThreadHints(pinCore int, raisePriority bool) {
	runtime.LockOSThread()
	if pinCore >= 0 {
		var set unix.CPUSet
		set.Zero()
		set.Set(pinCore)
		_ = unix.SchedSetaffinity(0, &set)
	}
	if raisePriority {
		_ = unix.Setpriority(unix.PRIO_PROCESS, 0, -5)
	}
}
