//go:build (freebsd || netbsd || openbsd || (linux && (!cgo || sni))) && !fynesystray

package systray

import (
	"github.com/username/systray/internal/platform/sni"
)

func nativeBackend(sink Sink, opts BackendOptions) (Window, error) {
	return sni.New(sink, opts)
}
