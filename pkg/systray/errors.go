package systray

import (
	"fmt"

	"github.com/username/systray/internal/platform"
)

// OSError reports a failed native call.
type OSError = platform.OSError

var (
	// ErrNotImplemented is wrapped by errors for capabilities the current
	// backend does not have.
	ErrNotImplemented = platform.ErrNotImplemented
	// ErrUnknown is wrapped when a native call failed without a diagnostic.
	ErrUnknown = platform.ErrUnknown
	// ErrLoopStopped is returned by mutations after the native loop ended.
	ErrLoopStopped = platform.ErrLoopStopped
)

// CallbackError carries the error returned by a menu callback. It ends
// WaitForMessage.
type CallbackError struct {
	ID  MenuItemID
	Err error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("systray: callback for menu item %d: %v", e.ID, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }
