//go:build darwin && cgo

// Package cocoa is the macOS tray backend: an NSStatusItem with an NSMenu.
//
// AppKit must be driven from the process main thread, so unlike the other
// backends this one does not own a thread. New and Run must both be called
// from main; other goroutines reach AppKit through the main dispatch queue.
package cocoa

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa
#include <stdlib.h>
#include "tray_darwin.h"
*/
import "C"

import (
	"errors"
	"runtime/cgo"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/username/systray/internal/platform"
)

var errNotMainThread = errors.New("must be called from the main thread")

// Window implements platform.Window on top of AppKit.
type Window struct {
	sink   platform.Sink
	logger *zap.Logger
	handle cgo.Handle
	tray   *C.cocoa_tray

	mu            sync.Mutex
	running       bool
	quitRequested bool

	done     chan struct{}
	doneOnce sync.Once

	// removed is only touched on the main thread.
	removed bool
}

var tasks = platform.NewTaskTable()

// New creates the status item. It must run on the main thread.
func New(sink platform.Sink, opts platform.Options) (*Window, error) {
	if C.systray_cocoa_is_main_thread() == 0 {
		return nil, platform.NewOSError("create status item", errNotMainThread)
	}

	w := &Window{
		sink:   sink,
		logger: opts.Log().Named("cocoa"),
		done:   make(chan struct{}),
	}
	w.handle = cgo.NewHandle(w)
	w.tray = C.systray_cocoa_new(C.uintptr_t(w.handle))
	if w.tray == nil {
		w.handle.Delete()
		return nil, platform.NewOSError("create status item", nil)
	}
	return w, nil
}

func (w *Window) post(t *platform.Task) error {
	key, err := tasks.Store(w, w.done, t)
	if err != nil {
		return err
	}
	C.systray_cocoa_post(C.uintptr_t(key))
	return nil
}

// call runs fn inline on the main thread. Elsewhere it is queued for the
// run loop, so before Run starts it blocks until it does.
func (w *Window) call(fn func() error) error {
	if C.systray_cocoa_is_main_thread() != 0 {
		select {
		case <-w.done:
			return platform.ErrLoopStopped
		default:
		}
		return fn()
	}
	return platform.Call(w.post, w.done, fn)
}

func errAdd(op string, parent platform.MenuItemID) error {
	if parent == platform.RootMenu {
		return platform.NewOSError(op, errors.New("label is not valid UTF-8"))
	}
	return platform.NewOSError(op, errors.New("unknown parent menu or label is not valid UTF-8"))
}

// AddMenuEntry appends an item whose tag is id.
func (w *Window) AddMenuEntry(parent, id platform.MenuItemID, label string) error {
	return w.call(func() error {
		cs := C.CString(label)
		defer C.free(unsafe.Pointer(cs))
		if C.systray_cocoa_add_item(w.tray, C.uint(parent), C.uint(id), cs) == 0 {
			return errAdd("add menu item", parent)
		}
		return nil
	})
}

// AddMenuSeparator appends a separator item.
func (w *Window) AddMenuSeparator(parent, _ platform.MenuItemID) error {
	return w.call(func() error {
		if C.systray_cocoa_add_separator(w.tray, C.uint(parent)) == 0 {
			return platform.NewOSError("add menu separator", errors.New("unknown parent menu"))
		}
		return nil
	})
}

// AddSubMenu appends an item carrying a nested NSMenu registered under id.
func (w *Window) AddSubMenu(parent, id platform.MenuItemID, label string) error {
	return w.call(func() error {
		cs := C.CString(label)
		defer C.free(unsafe.Pointer(cs))
		if C.systray_cocoa_add_submenu(w.tray, C.uint(parent), C.uint(id), cs) == 0 {
			return errAdd("add submenu", parent)
		}
		return nil
	})
}

// SetIconFromFile loads any image format NSImage understands.
func (w *Window) SetIconFromFile(path string) error {
	return w.call(func() error {
		cs := C.CString(path)
		defer C.free(unsafe.Pointer(cs))
		if C.systray_cocoa_set_icon_file(w.tray, cs) == 0 {
			return platform.NewOSError("load icon "+path, nil)
		}
		return nil
	})
}

// SetIconFromBuffer decodes an encoded image (PNG, TIFF, ICNS...). The
// dimensions are taken from the image itself.
func (w *Window) SetIconFromBuffer(buf []byte, _, _ uint32) error {
	if len(buf) == 0 {
		return platform.NewOSError("load icon from buffer", errors.New("empty buffer"))
	}
	return w.call(func() error {
		if C.systray_cocoa_set_icon_data(w.tray, unsafe.Pointer(&buf[0]), C.int(len(buf))) == 0 {
			return platform.NewOSError("load icon from buffer", nil)
		}
		return nil
	})
}

// SetIconFromResource looks the name up with +[NSImage imageNamed:].
func (w *Window) SetIconFromResource(name string) error {
	return w.call(func() error {
		cs := C.CString(name)
		defer C.free(unsafe.Pointer(cs))
		if C.systray_cocoa_set_icon_named(w.tray, cs) == 0 {
			return platform.NewOSError("load icon resource "+name, nil)
		}
		return nil
	})
}

// SetTooltip is unsupported: status items show no tooltip.
func (w *Window) SetTooltip(string) error {
	return platform.NotImplemented("set tooltip")
}

// Quit stops the run loop. Requested before Run, it makes Run return at
// once.
func (w *Window) Quit() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.quitRequested {
		return
	}
	w.quitRequested = true
	if !w.running {
		return
	}
	if C.systray_cocoa_is_main_thread() != 0 {
		C.systray_cocoa_stop()
		return
	}
	C.systray_cocoa_post_stop()
}

// Run drives [NSApp run] until Quit. It must be called from the main
// thread.
func (w *Window) Run() error {
	if C.systray_cocoa_is_main_thread() == 0 {
		return platform.NewOSError("run", errNotMainThread)
	}

	w.mu.Lock()
	if w.quitRequested {
		w.mu.Unlock()
		w.finish()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Debug("Cocoa run loop started")
	C.systray_cocoa_run()
	w.logger.Debug("Cocoa run loop stopped")

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	w.finish()
	return nil
}

func (w *Window) finish() {
	w.doneOnce.Do(func() {
		close(w.done)
		tasks.Cancel(w)
	})
}

// Shutdown removes the status item and releases its objects. Off the main
// thread the removal is queued on the run loop; a failed attempt leaves the
// item in place so Shutdown can be retried.
func (w *Window) Shutdown() error {
	remove := func() error {
		if w.removed {
			return nil
		}
		C.systray_cocoa_remove(w.tray)
		C.systray_cocoa_free(w.tray)
		w.tray = nil
		w.handle.Delete()
		w.removed = true
		return nil
	}
	if C.systray_cocoa_is_main_thread() != 0 {
		return remove()
	}
	return platform.Call(w.post, w.done, remove)
}

// Affinity implements platform.Window.
func (w *Window) Affinity() platform.Affinity {
	return platform.CallerThread
}
