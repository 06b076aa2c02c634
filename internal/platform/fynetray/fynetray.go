// Package fynetray adapts fyne.io/systray to the platform.Window contract.
// It is selected with the fynesystray build tag on platforms where the
// native backends cannot be built.
package fynetray

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"fyne.io/systray"
	"go.uber.org/zap"

	"github.com/username/systray/internal/platform"
)

// fyne.io/systray keeps a single global tray per process.
var active atomic.Bool

// nativeTray is the part of fyne.io/systray the window drives. Parents are
// platform.RootMenu or a submenu added earlier.
type nativeTray interface {
	run(onReady, onExit func())
	quit()
	addItem(parent, id platform.MenuItemID, label string) <-chan struct{}
	addSeparator(parent platform.MenuItemID)
	addSubMenu(parent, id platform.MenuItemID, label string)
	setIcon(data []byte)
	setTooltip(text string)
}

// fyneTray maps submenu ids to their fyne.io/systray items. It is only used
// from the tray loop or with the window lock held.
type fyneTray struct {
	submenus map[platform.MenuItemID]*systray.MenuItem
}

func newFyneTray() *fyneTray {
	return &fyneTray{submenus: make(map[platform.MenuItemID]*systray.MenuItem)}
}

func (*fyneTray) run(onReady, onExit func()) { systray.Run(onReady, onExit) }
func (*fyneTray) quit()                       { systray.Quit() }
func (*fyneTray) setIcon(data []byte)         { systray.SetIcon(data) }
func (*fyneTray) setTooltip(text string)      { systray.SetTooltip(text) }

func (f *fyneTray) add(parent platform.MenuItemID, label string) *systray.MenuItem {
	if parent == platform.RootMenu {
		return systray.AddMenuItem(label, "")
	}
	return f.submenus[parent].AddSubMenuItem(label, "")
}

func (f *fyneTray) addItem(parent, _ platform.MenuItemID, label string) <-chan struct{} {
	return f.add(parent, label).ClickedCh
}

func (f *fyneTray) addSeparator(parent platform.MenuItemID) {
	if parent == platform.RootMenu {
		systray.AddSeparator()
		return
	}
	f.submenus[parent].AddSeparator()
}

func (f *fyneTray) addSubMenu(parent, id platform.MenuItemID, label string) {
	f.submenus[id] = f.add(parent, label)
}

// Window implements platform.Window on fyne.io/systray.
type Window struct {
	sink   platform.Sink
	logger *zap.Logger
	tray   nativeTray

	mu            sync.Mutex
	ready         bool
	quitRequested bool
	stopped       bool
	pending       []func()
	submenus      map[platform.MenuItemID]bool

	quit         chan struct{}
	quitOnce     sync.Once
	shutdownOnce sync.Once
}

// New reserves the process-wide tray. Menu and icon changes made before Run
// are replayed once the tray is up.
func New(sink platform.Sink, opts platform.Options) (*Window, error) {
	return newWindow(sink, opts, newFyneTray())
}

func newWindow(sink platform.Sink, opts platform.Options, tray nativeTray) (*Window, error) {
	if !active.CompareAndSwap(false, true) {
		return nil, platform.NewOSError("create tray", errors.New("a tray already exists in this process"))
	}
	return &Window{
		sink:     sink,
		logger:   opts.Log().Named("fynetray"),
		tray:     tray,
		submenus: make(map[platform.MenuItemID]bool),
		quit:     make(chan struct{}),
	}, nil
}

// do runs op now if the tray is up, or queues it for onReady.
func (w *Window) do(op func()) error {
	return w.doChecked(nil, op)
}

// doChecked is do with a check run under the window lock first.
func (w *Window) doChecked(check func() error, op func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return platform.ErrLoopStopped
	}
	if check != nil {
		if err := check(); err != nil {
			return err
		}
	}
	if !w.ready {
		w.pending = append(w.pending, op)
		return nil
	}
	op()
	return nil
}

func (w *Window) onReady() {
	w.mu.Lock()
	w.ready = true
	pending := w.pending
	w.pending = nil
	quit := w.quitRequested
	for _, op := range pending {
		op()
	}
	w.mu.Unlock()

	w.logger.Debug("Tray ready", zap.Int("replayed", len(pending)))
	if quit {
		w.tray.quit()
	}
}

func (w *Window) onExit() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.logger.Debug("Tray exited")
}

func (w *Window) forward(id platform.MenuItemID, clicked <-chan struct{}) {
	go func() {
		for {
			select {
			case <-w.quit:
				return
			case _, ok := <-clicked:
				if !ok {
					return
				}
				w.sink.Send(platform.Event{MenuIndex: id})
			}
		}
	}()
}

// addEntry runs op like do once parent is known. When submenu is set, id
// becomes a valid parent.
func (w *Window) addEntry(parent, id platform.MenuItemID, submenu bool, op func()) error {
	return w.doChecked(func() error {
		if parent != platform.RootMenu && !w.submenus[parent] {
			return platform.NewOSError("add menu entry", fmt.Errorf("unknown parent menu %d", parent))
		}
		if submenu {
			w.submenus[id] = true
		}
		return nil
	}, op)
}

// AddMenuEntry appends an item and forwards its clicks to the sink.
func (w *Window) AddMenuEntry(parent, id platform.MenuItemID, label string) error {
	return w.addEntry(parent, id, false, func() {
		w.forward(id, w.tray.addItem(parent, id, label))
	})
}

// AddMenuSeparator appends a separator.
func (w *Window) AddMenuSeparator(parent, id platform.MenuItemID) error {
	return w.addEntry(parent, id, false, func() {
		w.tray.addSeparator(parent)
	})
}

// AddSubMenu appends an item that opens the entries added under id.
func (w *Window) AddSubMenu(parent, id platform.MenuItemID, label string) error {
	return w.addEntry(parent, id, true, func() {
		w.tray.addSubMenu(parent, id, label)
	})
}

// SetIconFromFile reads the file and hands its bytes to SetIconFromBuffer.
func (w *Window) SetIconFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return platform.NewOSError("load icon", err)
	}
	return w.SetIconFromBuffer(data, 0, 0)
}

// SetIconFromBuffer sets the icon from ICO bytes on Windows and PNG
// elsewhere; the dimensions come from the image.
func (w *Window) SetIconFromBuffer(buf []byte, _, _ uint32) error {
	if len(buf) == 0 {
		return platform.NewOSError("load icon from buffer", errors.New("empty buffer"))
	}
	data := append([]byte(nil), buf...)
	return w.do(func() {
		w.tray.setIcon(data)
	})
}

// SetIconFromResource is not offered by fyne.io/systray.
func (w *Window) SetIconFromResource(string) error {
	return platform.NotImplemented("set icon from resource")
}

// SetTooltip sets the hover text.
func (w *Window) SetTooltip(text string) error {
	return w.do(func() {
		w.tray.setTooltip(text)
	})
}

// Quit stops the tray. Before Run it makes Run return at once.
func (w *Window) Quit() {
	w.quitOnce.Do(func() {
		close(w.quit)

		w.mu.Lock()
		w.quitRequested = true
		ready := w.ready && !w.stopped
		w.mu.Unlock()

		if ready {
			w.tray.quit()
		}
	})
}

// Run blocks in the fyne.io/systray loop until Quit.
func (w *Window) Run() error {
	w.mu.Lock()
	if w.quitRequested || w.stopped {
		w.stopped = true
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	w.tray.run(w.onReady, w.onExit)
	return nil
}

// Shutdown releases the process-wide tray. The icon itself is removed by
// fyne.io/systray when its loop exits.
func (w *Window) Shutdown() error {
	w.shutdownOnce.Do(func() {
		w.Quit()
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()
		active.Store(false)
	})
	return nil
}

// Affinity implements platform.Window.
func (w *Window) Affinity() platform.Affinity {
	return platform.CallerThread
}
