//go:build linux && cgo

// Package gtk is the Linux tray backend built on GTK 3 and libappindicator.
// GTK objects live on a dedicated OS thread running gtk_main; other threads
// reach it through g_idle_add, the only cross-thread safe GLib primitive
// used here.
package gtk

/*
#cgo pkg-config: gtk+-3.0 appindicator3-0.1
#include <stdlib.h>
#include "tray_linux.h"
*/
import "C"

import (
	"fmt"
	"os"
	"runtime"
	"runtime/cgo"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/username/systray/internal/platform"
)

// tasks holds work queued with g_idle_add until the GTK thread runs it.
var tasks = platform.NewTaskTable()

// Window implements platform.Window with an AppIndicator.
type Window struct {
	sink   platform.Sink
	logger *zap.Logger
	appID  string
	handle cgo.Handle

	// Owned by the GTK thread once initialised.
	state  *C.tray_state
	hidden bool

	quitOnce sync.Once
	done     chan struct{}
}

// New initialises GTK and the indicator on a new OS thread, then leaves
// that thread in gtk_main.
func New(sink platform.Sink, opts platform.Options) (*Window, error) {
	w := &Window{
		sink:   sink,
		logger: opts.Log().Named("gtk"),
		appID:  opts.AppID,
		done:   make(chan struct{}),
	}
	w.handle = cgo.NewHandle(w)

	ready := make(chan error, 1)
	go w.loop(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Window) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	appID := C.CString(w.appID)
	w.state = C.systray_gtk_init(C.uintptr_t(w.handle), appID)
	C.free(unsafe.Pointer(appID))
	if w.state == nil {
		w.stop()
		ready <- platform.NewOSError("gtk_init_check", fmt.Errorf("cannot initialise GTK (no display?)"))
		return
	}
	ready <- nil
	w.logger.Debug("GTK main loop started", zap.String("app_id", w.appID))

	C.systray_gtk_main()

	w.stop()
	C.systray_gtk_free(w.state)
	w.state = nil
	w.logger.Debug("GTK main loop stopped")
}

// stop marks the loop as gone, then fails whatever is still queued for it.
func (w *Window) stop() {
	close(w.done)
	tasks.Cancel(w)
	w.handle.Delete()
}

func (w *Window) post(t *platform.Task) error {
	key, err := tasks.Store(w, w.done, t)
	if err != nil {
		return err
	}
	C.systray_gtk_post(C.uintptr_t(key))
	return nil
}

func (w *Window) call(fn func() error) error {
	if C.systray_gtk_is_ui_thread() != 0 {
		return fn()
	}
	return platform.Call(w.post, w.done, fn)
}

// AddMenuEntry appends a labelled item to parent.
func (w *Window) AddMenuEntry(parent, id platform.MenuItemID, label string) error {
	return w.call(func() error {
		cs := C.CString(label)
		defer C.free(unsafe.Pointer(cs))
		if C.systray_gtk_add_item(w.state, C.uint(parent), C.uint(id), cs) == 0 {
			return platform.NewOSError("gtk_menu_item_new_with_label", nil)
		}
		return nil
	})
}

// AddMenuSeparator appends a separator. GTK separators carry no id.
func (w *Window) AddMenuSeparator(parent, _ platform.MenuItemID) error {
	return w.call(func() error {
		if C.systray_gtk_add_separator(w.state, C.uint(parent)) == 0 {
			return platform.NewOSError("gtk_separator_menu_item_new", nil)
		}
		return nil
	})
}

// AddSubMenu appends an item opening a nested GtkMenu registered under id.
func (w *Window) AddSubMenu(parent, id platform.MenuItemID, label string) error {
	return w.call(func() error {
		cs := C.CString(label)
		defer C.free(unsafe.Pointer(cs))
		if C.systray_gtk_add_submenu(w.state, C.uint(parent), C.uint(id), cs) == 0 {
			return platform.NewOSError("gtk_menu_item_set_submenu", nil)
		}
		return nil
	})
}

// SetIconFromFile points the indicator at an image file.
func (w *Window) SetIconFromFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return platform.NewOSError("load icon", err)
	}
	return w.setIcon(path)
}

// SetIconFromResource uses a named icon from the current icon theme.
func (w *Window) SetIconFromResource(name string) error {
	return w.setIcon(name)
}

func (w *Window) setIcon(icon string) error {
	return w.call(func() error {
		cs := C.CString(icon)
		defer C.free(unsafe.Pointer(cs))
		C.systray_gtk_set_icon(w.state, cs)
		return nil
	})
}

// SetIconFromBuffer is not available: AppIndicator only loads icons by
// name or path.
func (w *Window) SetIconFromBuffer([]byte, uint32, uint32) error {
	return platform.NotImplemented("set icon from buffer")
}

// SetTooltip sets the indicator title, which status hosts show on hover.
func (w *Window) SetTooltip(text string) error {
	return w.call(func() error {
		cs := C.CString(text)
		defer C.free(unsafe.Pointer(cs))
		C.systray_gtk_set_title(w.state, cs)
		return nil
	})
}

// Quit schedules gtk_main_quit on the GTK thread.
func (w *Window) Quit() {
	w.quitOnce.Do(func() {
		C.systray_gtk_quit()
	})
}

// Run waits for gtk_main to return.
func (w *Window) Run() error {
	<-w.done
	return nil
}

// Shutdown hides the indicator. After the loop exits the indicator is gone.
func (w *Window) Shutdown() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	return w.call(func() error {
		if !w.hidden {
			C.systray_gtk_hide(w.state)
			w.hidden = true
		}
		return nil
	})
}

// Affinity implements platform.Window.
func (w *Window) Affinity() platform.Affinity {
	return platform.OwnThread
}
