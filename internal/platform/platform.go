// Package platform defines the contract every native tray backend implements
// and the types that cross the boundary between a backend's UI thread and the
// consumption loop in pkg/systray.
package platform

import (
	"go.uber.org/zap"
)

// MenuItemID identifies a menu entry inside one application. IDs are dense,
// start at 0 and are never reused.
type MenuItemID uint32

// RootMenu is the parent of entries placed directly in the tray menu.
const RootMenu MenuItemID = 1<<32 - 1

// Event is the only message a backend delivers to the consumption loop.
type Event struct {
	MenuIndex MenuItemID
}

// Sink receives events from a backend trampoline. Send must never block the
// native thread and must be safe to call from any goroutine.
type Sink interface {
	Send(ev Event)
}

// Affinity describes which thread drives a backend's native loop.
type Affinity int

const (
	// OwnThread backends start their native loop on a dedicated, locked OS
	// thread during construction. Run only waits for that loop to exit.
	OwnThread Affinity = iota
	// CallerThread backends drive the native loop inside Run, which must be
	// called from the process main thread.
	CallerThread
)

func (a Affinity) String() string {
	switch a {
	case OwnThread:
		return "own-thread"
	case CallerThread:
		return "caller-thread"
	default:
		return "unknown"
	}
}

// Options carries construction parameters shared by all backends.
type Options struct {
	// AppID is a stable identifier used where the native API wants one
	// (window class name, D-Bus item id, indicator id).
	AppID  string
	Logger *zap.Logger
}

// Log returns the configured logger or a no-op logger.
func (o Options) Log() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Window is a native tray icon with its popup menu.
//
// Mutating methods may be called from any goroutine; backends marshal them
// onto their UI thread and wait for the result.
type Window interface {
	// Entries are appended to parent, which is RootMenu or the id of a
	// submenu added earlier.
	AddMenuEntry(parent, id MenuItemID, label string) error
	AddMenuSeparator(parent, id MenuItemID) error
	AddSubMenu(parent, id MenuItemID, label string) error
	SetIconFromFile(path string) error
	SetIconFromBuffer(buf []byte, width, height uint32) error
	SetIconFromResource(name string) error
	SetTooltip(text string) error

	// Quit asks the native loop to stop. Safe from any goroutine, idempotent.
	Quit()
	// Run blocks until the native loop has stopped. For CallerThread
	// backends it runs the loop itself.
	Run() error
	// Shutdown removes the icon from the shell. Idempotent.
	Shutdown() error

	Affinity() Affinity
}
