//go:build darwin && cgo && !fynesystray

package systray

import (
	"github.com/username/systray/internal/platform/cocoa"
)

func nativeBackend(sink Sink, opts BackendOptions) (Window, error) {
	return cocoa.New(sink, opts)
}
