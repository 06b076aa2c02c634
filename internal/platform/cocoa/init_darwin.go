//go:build darwin && cgo

package cocoa

import "runtime"

func init() {
	// AppKit only runs on the main thread, and main.main starts there.
	runtime.LockOSThread()
}
