package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrNotImplemented reports a capability the current backend lacks.
	ErrNotImplemented = errors.New("not implemented on this platform")
	// ErrUnknown is returned when a native call fails without a diagnostic.
	ErrUnknown = errors.New("unknown error")
	// ErrLoopStopped is returned for mutations requested after the native
	// loop has exited.
	ErrLoopStopped = errors.New("native loop is not running")
)

// OSError is a failed native call.
type OSError struct {
	Op   string
	Code uint32
	Err  error
}

func (e *OSError) Error() string {
	msg := "systray: " + e.Op
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	return msg
}

func (e *OSError) Unwrap() error { return e.Err }

// NewOSError wraps err as the failure of op. A nil err becomes ErrUnknown.
func NewOSError(op string, err error) *OSError {
	if err == nil {
		err = ErrUnknown
	}
	return &OSError{Op: op, Err: err}
}

// NotImplemented returns ErrNotImplemented annotated with the operation.
func NotImplemented(op string) error {
	return fmt.Errorf("%s: %w", op, ErrNotImplemented)
}
