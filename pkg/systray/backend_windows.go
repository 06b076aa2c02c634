//go:build windows && !fynesystray

package systray

import (
	"github.com/username/systray/internal/platform/win32"
)

func nativeBackend(sink Sink, opts BackendOptions) (Window, error) {
	return win32.New(sink, opts)
}
