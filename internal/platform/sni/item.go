//go:build linux || freebsd || netbsd || openbsd

package sni

import (
	"github.com/godbus/dbus/v5"
)

// item holds the org.kde.StatusNotifierItem methods. ItemIsMenu is set, so
// hosts open the exported menu themselves and activation carries no
// meaning.
type item struct{}

func (item) Activate(x, y int32) *dbus.Error {
	return nil
}

func (item) SecondaryActivate(x, y int32) *dbus.Error {
	return nil
}

func (item) ContextMenu(x, y int32) *dbus.Error {
	return nil
}

func (item) Scroll(delta int32, orientation string) *dbus.Error {
	return nil
}
