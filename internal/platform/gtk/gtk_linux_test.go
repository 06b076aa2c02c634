//go:build linux && cgo

package gtk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/username/systray/internal/platform"
)

func TestWindow_SetIconFromBufferNotImplemented(t *testing.T) {
	w := &Window{}
	err := w.SetIconFromBuffer([]byte{0x89, 'P', 'N', 'G'}, 16, 16)
	assert.ErrorIs(t, err, platform.ErrNotImplemented)
}

func TestWindow_SetIconFromMissingFile(t *testing.T) {
	w := &Window{}
	err := w.SetIconFromFile("/nonexistent/tray.png")

	var osErr *platform.OSError
	assert.ErrorAs(t, err, &osErr)
}

func TestWindow_Affinity(t *testing.T) {
	assert.Equal(t, platform.OwnThread, (&Window{}).Affinity())
}

func TestWindow_PostAfterLoopEnded(t *testing.T) {
	w := &Window{done: make(chan struct{})}
	close(w.done)
	tasks.Cancel(w)

	// Call itself checks done first, so hand it an open channel.
	alive := make(chan struct{})
	err := platform.Call(w.post, alive, func() error { return nil })
	assert.ErrorIs(t, err, platform.ErrLoopStopped)
}
