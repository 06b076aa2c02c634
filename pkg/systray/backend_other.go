//go:build !fynesystray && !windows && !linux && !freebsd && !netbsd && !openbsd && !(darwin && cgo)

package systray

import (
	"fmt"
	"runtime"

	"github.com/username/systray/internal/platform"
)

func nativeBackend(Sink, BackendOptions) (Window, error) {
	return nil, platform.NewOSError("create tray", fmt.Errorf("no tray backend for %s", runtime.GOOS))
}
