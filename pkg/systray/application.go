package systray

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/username/systray/internal/eventq"
	"github.com/username/systray/internal/platform"
	"github.com/username/systray/internal/registry"
)

// Callback runs when its menu item is clicked. It receives the owning
// application and may add items, change the icon or call Quit. A non-nil
// error stops WaitForMessage.
type Callback func(app *Application) error

// Action adapts a callback that cannot fail.
func Action(fn func(app *Application)) Callback {
	return func(app *Application) error {
		fn(app)
		return nil
	}
}

// Application is a tray icon, its menu and the callbacks bound to it.
type Application struct {
	window    platform.Window
	events    *eventq.Queue
	callbacks *registry.Registry[Callback]
	logger    *zap.Logger

	// mu serializes id allocation with the native call that consumes the id.
	mu       sync.Mutex
	nextID   MenuItemID
	submenus map[MenuItemID]bool

	quitting atomic.Bool
	waiting  atomic.Bool

	shutdownMu sync.Mutex
	shutdown   bool
}

// New initialises the native tray icon. It fails with an *OSError when the
// platform refuses to create it.
func New(opts ...Option) (*Application, error) {
	o := buildOptions(opts)

	events := eventq.New()
	window, err := o.backend(events, platform.Options{AppID: o.appID, Logger: o.logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create tray window: %w", err)
	}

	o.logger.Debug("Tray application created",
		zap.String("app_id", o.appID),
		zap.Stringer("affinity", window.Affinity()))

	return &Application{
		window:    window,
		events:    events,
		callbacks: registry.New[Callback](),
		logger:    o.logger,
		submenus:  make(map[MenuItemID]bool),
	}, nil
}

// AddMenuItem appends a clickable entry and binds cb to it. IDs are only
// consumed when the native insert succeeds.
func (a *Application) AddMenuItem(label string, cb Callback) (MenuItemID, error) {
	return a.addMenuItem(RootMenu, label, cb)
}

// AddMenuSeparator appends a separator. Separators take an id like items do.
func (a *Application) AddMenuSeparator() (MenuItemID, error) {
	return a.addMenuSeparator(RootMenu)
}

// AddSubMenu appends an entry that opens a nested menu. Entries added
// through the returned SubMenu draw ids from the same sequence as the
// top-level ones.
func (a *Application) AddSubMenu(label string) (*SubMenu, error) {
	return a.addSubMenu(RootMenu, label)
}

func (a *Application) addMenuItem(parent MenuItemID, label string, cb Callback) (MenuItemID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	if err := a.window.AddMenuEntry(parent, id, label); err != nil {
		return 0, fmt.Errorf("failed to add menu item %q: %w", label, err)
	}
	if cb != nil {
		a.callbacks.Put(uint32(id), cb)
	}
	a.nextID++

	a.logger.Debug("Menu item added",
		zap.Uint32("menu_id", uint32(id)),
		zap.Uint32("parent_id", uint32(parent)),
		zap.String("label", label))
	return id, nil
}

func (a *Application) addMenuSeparator(parent MenuItemID) (MenuItemID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	if err := a.window.AddMenuSeparator(parent, id); err != nil {
		return 0, fmt.Errorf("failed to add menu separator: %w", err)
	}
	a.nextID++
	return id, nil
}

func (a *Application) addSubMenu(parent MenuItemID, label string) (*SubMenu, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	if err := a.window.AddSubMenu(parent, id, label); err != nil {
		return nil, fmt.Errorf("failed to add submenu %q: %w", label, err)
	}
	a.submenus[id] = true
	a.nextID++

	a.logger.Debug("Submenu added",
		zap.Uint32("menu_id", uint32(id)),
		zap.Uint32("parent_id", uint32(parent)),
		zap.String("label", label))
	return &SubMenu{app: a, id: id}, nil
}

// SetCallback binds cb to an existing menu item, replacing the previous
// callback. When called from inside the item's own callback, the running
// callback is not reinstated afterwards.
func (a *Application) SetCallback(id MenuItemID, cb Callback) error {
	if cb == nil {
		return errors.New("callback is nil")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if id >= a.nextID {
		return fmt.Errorf("unknown menu item %d", id)
	}
	if a.submenus[id] {
		return fmt.Errorf("menu item %d opens a submenu", id)
	}
	a.callbacks.Put(uint32(id), cb)
	return nil
}

// RemoveCallback unbinds the callback of id. The menu entry stays visible;
// clicks on it are ignored.
func (a *Application) RemoveCallback(id MenuItemID) bool {
	return a.callbacks.Remove(uint32(id))
}

// SetIconFromFile loads the icon from an image file.
func (a *Application) SetIconFromFile(path string) error {
	if err := a.window.SetIconFromFile(path); err != nil {
		return fmt.Errorf("failed to set icon from %s: %w", path, err)
	}
	return nil
}

// SetIconFromBuffer loads the icon from encoded image bytes.
func (a *Application) SetIconFromBuffer(buf []byte, width, height uint32) error {
	if len(buf) == 0 {
		return errors.New("icon buffer is empty")
	}
	if err := a.window.SetIconFromBuffer(buf, width, height); err != nil {
		return fmt.Errorf("failed to set icon from buffer: %w", err)
	}
	return nil
}

// SetIconFromResource loads a named icon from the executable resources
// (Windows), the icon theme (Linux) or the application bundle (macOS).
func (a *Application) SetIconFromResource(name string) error {
	if err := a.window.SetIconFromResource(name); err != nil {
		return fmt.Errorf("failed to set icon from resource %s: %w", name, err)
	}
	return nil
}

// SetTooltip sets the hover text of the icon.
func (a *Application) SetTooltip(text string) error {
	if err := a.window.SetTooltip(text); err != nil {
		return fmt.Errorf("failed to set tooltip: %w", err)
	}
	return nil
}

// Quit stops the native loop and makes WaitForMessage return. No callback
// is invoked after Quit. Safe from any goroutine, including callbacks.
func (a *Application) Quit() {
	if a.quitting.Swap(true) {
		return
	}
	a.logger.Debug("Quit requested", zap.Int("pending_events", a.events.Len()))
	a.window.Quit()
	a.events.Close()
}

// Shutdown removes the icon from the shell. Once it has succeeded, further
// calls do nothing; after a failure it may be called again.
func (a *Application) Shutdown() error {
	a.shutdownMu.Lock()
	defer a.shutdownMu.Unlock()

	if a.shutdown {
		return nil
	}
	if err := a.window.Shutdown(); err != nil {
		return fmt.Errorf("failed to remove tray icon: %w", err)
	}
	a.shutdown = true
	return nil
}

// Close quits, removes the icon and drops every callback.
func (a *Application) Close() error {
	a.Quit()
	err := a.Shutdown()
	if err != nil {
		a.logger.Warn("Tray teardown failed", zap.Error(err))
	}
	a.logger.Debug("Dropping callbacks", zap.Int("count", a.callbacks.Len()))
	a.callbacks.Clear()
	return err
}

// WaitForMessage dispatches menu events until Quit is called, the native
// loop ends, or a callback fails. A callback error is returned as a
// *CallbackError. For CallerThread backends this must be called from the
// main goroutine.
func (a *Application) WaitForMessage() error {
	if a.waiting.Swap(true) {
		return errors.New("systray: WaitForMessage is already running")
	}
	defer a.waiting.Store(false)

	if a.window.Affinity() == platform.CallerThread {
		return a.waitOnCaller()
	}
	return a.waitOnOwnThread()
}

// waitOnOwnThread consumes on the calling goroutine while the native loop
// lives on its own thread.
func (a *Application) waitOnOwnThread() error {
	loopDone := make(chan error, 1)
	go func() {
		err := a.window.Run()
		a.events.Close()
		loopDone <- err
	}()

	err := a.consume()
	if err != nil {
		a.window.Quit()
	}
	if loopErr := <-loopDone; loopErr != nil && err == nil {
		err = fmt.Errorf("native loop failed: %w", loopErr)
	}
	return err
}

// waitOnCaller gives the calling thread to the native loop and consumes on
// a secondary goroutine, joined only after the loop has returned.
func (a *Application) waitOnCaller() error {
	consumed := make(chan error, 1)
	go func() {
		err := a.consume()
		if err != nil {
			a.window.Quit()
		}
		consumed <- err
	}()

	loopErr := a.window.Run()
	a.events.Close()
	err := <-consumed

	if loopErr != nil && err == nil {
		err = fmt.Errorf("native loop failed: %w", loopErr)
	}
	return err
}

func (a *Application) consume() error {
	for {
		ev, ok := a.events.Recv()
		if !ok || a.quitting.Load() {
			return nil
		}
		if err := a.dispatch(ev); err != nil {
			a.logger.Error("Menu callback failed",
				zap.Uint32("menu_id", uint32(ev.MenuIndex)),
				zap.Error(err))
			return err
		}
	}
}

// dispatch invokes the callback of ev without holding it in the registry,
// so the callback may register new items or replace itself.
func (a *Application) dispatch(ev Event) error {
	id := uint32(ev.MenuIndex)
	cb, gen, ok := a.callbacks.Take(id)
	if !ok {
		a.logger.Debug("No callback for menu item", zap.Uint32("menu_id", id))
		return nil
	}

	if err := cb(a); err != nil {
		return &CallbackError{ID: ev.MenuIndex, Err: err}
	}

	if !a.callbacks.Restore(id, gen, cb) {
		a.logger.Debug("Callback changed during invocation, not restored", zap.Uint32("menu_id", id))
	}
	return nil
}
