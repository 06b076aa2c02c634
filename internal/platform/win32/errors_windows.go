//go:build windows

package win32

import (
	"errors"
	"syscall"

	"github.com/username/systray/internal/platform"
)

// lastError converts the error returned by LazyProc.Call into an OSError.
// Call always returns a non-nil error; ERROR_SUCCESS means no diagnostic.
func lastError(op string, err error) *platform.OSError {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == 0 {
			return platform.NewOSError(op, nil)
		}
		return &platform.OSError{Op: op, Code: uint32(errno), Err: errno}
	}
	return platform.NewOSError(op, err)
}
