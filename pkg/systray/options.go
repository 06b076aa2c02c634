package systray

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/username/systray/internal/platform"
)

type (
	// MenuItemID identifies a menu entry; see platform.MenuItemID.
	MenuItemID = platform.MenuItemID
	// Event is a click on a menu entry.
	Event = platform.Event
	// Sink receives events from a backend.
	Sink = platform.Sink
	// Window is the contract implemented by native backends.
	Window = platform.Window
	// BackendOptions is passed to a Backend on construction.
	BackendOptions = platform.Options
	// Affinity tells which thread drives a backend's native loop.
	Affinity = platform.Affinity
)

// Thread topologies, see platform.Affinity.
const (
	OwnThread    = platform.OwnThread
	CallerThread = platform.CallerThread
)

// RootMenu is the parent of entries placed directly in the tray menu.
const RootMenu = platform.RootMenu

// Backend constructs the native window for an Application.
type Backend func(sink Sink, opts BackendOptions) (Window, error)

type options struct {
	logger  *zap.Logger
	appID   string
	backend Backend
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger used by the application and its backend.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAppID sets the identifier the backend registers with the shell.
// A random one is generated when empty.
func WithAppID(id string) Option {
	return func(o *options) {
		o.appID = id
	}
}

// WithBackend replaces the platform backend selected at build time.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

func buildOptions(opts []Option) options {
	o := options{backend: nativeBackend}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.appID == "" {
		o.appID = "systray-" + uuid.NewString()
	}
	return o
}
