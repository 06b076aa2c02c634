//go:build windows

package win32

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/windows"

	"github.com/username/systray/internal/platform"
)

func TestWindow_MenuFor(t *testing.T) {
	w := &Window{
		menu:  windows.Handle(1),
		menus: map[platform.MenuItemID]windows.Handle{4: windows.Handle(2)},
	}

	m, err := w.menuFor(platform.RootMenu)
	assert.NoError(t, err)
	assert.Equal(t, windows.Handle(1), m)

	m, err = w.menuFor(4)
	assert.NoError(t, err)
	assert.Equal(t, windows.Handle(2), m)

	var osErr *platform.OSError
	_, err = w.menuFor(5)
	assert.ErrorAs(t, err, &osErr)
}
