//go:build fynesystray

package systray

import (
	"github.com/username/systray/internal/platform/fynetray"
)

func nativeBackend(sink Sink, opts BackendOptions) (Window, error) {
	return fynetray.New(sink, opts)
}
