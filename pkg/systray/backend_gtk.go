//go:build linux && cgo && !sni && !fynesystray

package systray

import (
	"github.com/username/systray/internal/platform/gtk"
)

func nativeBackend(sink Sink, opts BackendOptions) (Window, error) {
	return gtk.New(sink, opts)
}
