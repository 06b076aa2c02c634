// Package systraytest provides an in-memory tray backend for tests of code
// built on package systray.
//
//	w := systraytest.NewWindow()
//	app, _ := systray.New(systray.WithBackend(w.Backend))
//	go app.WaitForMessage()
//	w.Click(0)
package systraytest

import (
	"fmt"
	"sync"

	"github.com/username/systray/internal/platform"
)

// Entry is one menu entry as recorded by the fake backend. Parent is
// platform.RootMenu for top-level entries.
type Entry struct {
	Parent    platform.MenuItemID
	ID        platform.MenuItemID
	Label     string
	Separator bool
	SubMenu   bool
}

// Window records every native call and lets tests inject clicks.
type Window struct {
	affinity platform.Affinity

	mu         sync.Mutex
	sink       platform.Sink
	entries    []Entry
	icon       string
	tooltip    string
	failNext   error
	shutdowns  int
	quitCalled bool
	running    bool

	created chan struct{}
	quit    chan struct{}
	started chan struct{}
	once    sync.Once
}

// NewWindow returns a backend with the Win32/Linux topology.
func NewWindow() *Window {
	return newWindow(platform.OwnThread)
}

// NewMainThreadWindow returns a backend with the macOS topology, where Run
// drives the loop on the caller.
func NewMainThreadWindow() *Window {
	return newWindow(platform.CallerThread)
}

func newWindow(a platform.Affinity) *Window {
	return &Window{
		affinity: a,
		created:  make(chan struct{}),
		quit:     make(chan struct{}),
		started:  make(chan struct{}),
	}
}

// Backend is a systray.Backend that binds w to the application's sink.
func (w *Window) Backend(sink platform.Sink, _ platform.Options) (platform.Window, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sink != nil {
		return nil, platform.NewOSError("create window", fmt.Errorf("fake window already in use"))
	}
	if err := w.takeFailure(); err != nil {
		return nil, err
	}
	w.sink = sink
	close(w.created)
	return w, nil
}

// FailNext makes the next native call return err.
func (w *Window) FailNext(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failNext = err
}

func (w *Window) takeFailure() error {
	err := w.failNext
	w.failNext = nil
	return err
}

func (w *Window) record(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.takeFailure(); err != nil {
		return err
	}
	return fn()
}

func (w *Window) addEntry(e Entry) error {
	return w.record(func() error {
		if e.Parent != platform.RootMenu && !w.isSubMenu(e.Parent) {
			return platform.NewOSError("add menu entry", fmt.Errorf("unknown parent menu %d", e.Parent))
		}
		w.entries = append(w.entries, e)
		return nil
	})
}

func (w *Window) isSubMenu(id platform.MenuItemID) bool {
	for _, e := range w.entries {
		if e.ID == id {
			return e.SubMenu
		}
	}
	return false
}

// AddMenuEntry implements platform.Window.
func (w *Window) AddMenuEntry(parent, id platform.MenuItemID, label string) error {
	return w.addEntry(Entry{Parent: parent, ID: id, Label: label})
}

// AddMenuSeparator implements platform.Window.
func (w *Window) AddMenuSeparator(parent, id platform.MenuItemID) error {
	return w.addEntry(Entry{Parent: parent, ID: id, Separator: true})
}

// AddSubMenu implements platform.Window.
func (w *Window) AddSubMenu(parent, id platform.MenuItemID, label string) error {
	return w.addEntry(Entry{Parent: parent, ID: id, Label: label, SubMenu: true})
}

// SetIconFromFile implements platform.Window.
func (w *Window) SetIconFromFile(path string) error {
	return w.record(func() error {
		w.icon = "file:" + path
		return nil
	})
}

// SetIconFromBuffer implements platform.Window.
func (w *Window) SetIconFromBuffer(buf []byte, width, height uint32) error {
	return w.record(func() error {
		w.icon = fmt.Sprintf("buffer:%dx%d:%d", width, height, len(buf))
		return nil
	})
}

// SetIconFromResource implements platform.Window.
func (w *Window) SetIconFromResource(name string) error {
	return w.record(func() error {
		w.icon = "resource:" + name
		return nil
	})
}

// SetTooltip implements platform.Window.
func (w *Window) SetTooltip(text string) error {
	return w.record(func() error {
		w.tooltip = text
		return nil
	})
}

// Quit implements platform.Window.
func (w *Window) Quit() {
	w.mu.Lock()
	w.quitCalled = true
	w.mu.Unlock()
	w.once.Do(func() { close(w.quit) })
}

// Run implements platform.Window. It blocks until Quit.
func (w *Window) Run() error {
	w.mu.Lock()
	first := !w.running
	w.running = true
	w.mu.Unlock()
	if first {
		close(w.started)
	}
	<-w.quit
	return nil
}

// Shutdown implements platform.Window.
func (w *Window) Shutdown() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.takeFailure(); err != nil {
		return err
	}
	w.shutdowns++
	return nil
}

// Affinity implements platform.Window.
func (w *Window) Affinity() platform.Affinity {
	return w.affinity
}

// Started is closed once Run has been entered.
func (w *Window) Started() <-chan struct{} {
	return w.started
}

// Click simulates a click on the menu entry id.
func (w *Window) Click(id platform.MenuItemID) error {
	w.mu.Lock()
	sink := w.sink
	var found *Entry
	for i := range w.entries {
		if w.entries[i].ID == id {
			found = &w.entries[i]
			break
		}
	}
	w.mu.Unlock()

	switch {
	case sink == nil:
		return fmt.Errorf("window not bound to an application")
	case found == nil:
		return fmt.Errorf("no menu entry %d", id)
	case found.Separator:
		return fmt.Errorf("menu entry %d is a separator", id)
	case found.SubMenu:
		return fmt.Errorf("menu entry %d opens a submenu", id)
	}
	sink.Send(platform.Event{MenuIndex: id})
	return nil
}

// Post delivers ev without checking that the entry exists.
func (w *Window) Post(ev platform.Event) {
	<-w.created
	w.sink.Send(ev)
}

// Entries returns a copy of the menu in insertion order.
func (w *Window) Entries() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Entry(nil), w.entries...)
}

// Icon describes the last icon set, e.g. "file:/path" or "resource:name".
func (w *Window) Icon() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.icon
}

// Tooltip returns the last tooltip set.
func (w *Window) Tooltip() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tooltip
}

// QuitCalled reports whether Quit reached the backend.
func (w *Window) QuitCalled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.quitCalled
}

// Shutdowns counts successful Shutdown calls.
func (w *Window) Shutdowns() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shutdowns
}
