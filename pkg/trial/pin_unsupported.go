//go:build !linux

package trial

import "runtime"

func applyThreadHints(pinCore int, raisePriority bool) {
	runtime.LockOSThread()
}
