//go:build darwin && cgo

package cocoa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/username/systray/internal/platform"
)

// Test functions never run on the main thread, which is all these check.

func TestNew_RequiresMainThread(t *testing.T) {
	w, err := New(nil, platform.Options{})
	assert.Nil(t, w)

	var osErr *platform.OSError
	if assert.ErrorAs(t, err, &osErr) {
		assert.ErrorIs(t, err, errNotMainThread)
	}
}

func TestWindow_TooltipNotImplemented(t *testing.T) {
	w := &Window{}
	assert.ErrorIs(t, w.SetTooltip("hello"), platform.ErrNotImplemented)
	assert.Equal(t, platform.CallerThread, w.Affinity())
}

func TestWindow_RunRequiresMainThread(t *testing.T) {
	w := &Window{done: make(chan struct{})}
	assert.ErrorIs(t, w.Run(), errNotMainThread)
}

func TestWindow_EmptyBuffer(t *testing.T) {
	w := &Window{}
	var osErr *platform.OSError
	assert.ErrorAs(t, w.SetIconFromBuffer(nil, 16, 16), &osErr)
}

func TestWindow_ShutdownOffMainIsRetryable(t *testing.T) {
	w := &Window{done: make(chan struct{})}
	w.finish()

	// Each attempt reaches the run loop again instead of reusing a result.
	assert.ErrorIs(t, w.Shutdown(), platform.ErrLoopStopped)
	assert.ErrorIs(t, w.Shutdown(), platform.ErrLoopStopped)
	assert.False(t, w.removed)
}

func TestWindow_MenuAfterLoopEnded(t *testing.T) {
	w := &Window{done: make(chan struct{})}
	w.finish()

	assert.ErrorIs(t, w.AddMenuEntry(platform.RootMenu, 1, "Open"), platform.ErrLoopStopped)
	assert.ErrorIs(t, w.AddSubMenu(platform.RootMenu, 2, "More"), platform.ErrLoopStopped)
	assert.ErrorIs(t, w.AddMenuSeparator(2, 3), platform.ErrLoopStopped)
}
