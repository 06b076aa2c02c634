//go:build linux || freebsd || netbsd || openbsd

// Package sni is a cgo-free tray backend speaking the StatusNotifierItem and
// com.canonical.dbusmenu protocols on the D-Bus session bus.
package sni

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"go.uber.org/zap"

	"github.com/username/systray/internal/platform"
)

const (
	itemPath  = dbus.ObjectPath("/StatusNotifierItem")
	itemIface = "org.kde.StatusNotifierItem"

	watcherName  = "org.kde.StatusNotifierWatcher"
	watcherPath  = dbus.ObjectPath("/StatusNotifierWatcher")
	watcherIface = "org.kde.StatusNotifierWatcher"
)

var (
	errUnknownItem     = errors.New("unknown menu item")
	errUnknownProperty = errors.New("unknown property")
)

// instances makes bus names unique when a process creates several items.
var instances atomic.Uint32

type pixmap struct {
	Width  int32
	Height int32
	Data   []byte
}

type tooltip struct {
	IconName   string
	IconPixmap []pixmap
	Title      string
	Body       string
}

// Window implements platform.Window as a StatusNotifierItem.
type Window struct {
	logger  *zap.Logger
	appID   string
	busName string

	conn  *dbus.Conn
	props *prop.Properties
	menu  *dbusMenu

	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	closed       atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// New connects to the session bus, exports the item and its menu and
// registers with the StatusNotifierWatcher.
func New(sink platform.Sink, opts platform.Options) (*Window, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, platform.NewOSError("connect session bus", err)
	}

	w := &Window{
		logger:  opts.Log().Named("sni"),
		appID:   opts.AppID,
		busName: fmt.Sprintf("org.kde.StatusNotifierItem-%d-%d", os.Getpid(), instances.Add(1)),
		conn:    conn,
		menu:    newDBusMenu(sink),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if err := w.export(); err != nil {
		conn.Close()
		return nil, err
	}

	reply, err := conn.RequestName(w.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, platform.NewOSError("request name", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, platform.NewOSError("request name", fmt.Errorf("%s already taken", w.busName))
	}

	if err := w.register(); err != nil {
		// Items appear as soon as a watcher shows up.
		w.logger.Warn("No StatusNotifierWatcher yet", zap.Error(err))
	}

	signals := make(chan *dbus.Signal, 8)
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, watcherName),
	); err != nil {
		w.logger.Warn("Cannot watch for StatusNotifierWatcher restarts", zap.Error(err))
	}
	conn.Signal(signals)

	go w.loop(signals)
	return w, nil
}

func (w *Window) export() error {
	w.menu.changed = func(revision uint32) {
		if err := w.emit(menuPath, menuIface+".LayoutUpdated", revision, rootID); err != nil {
			w.logger.Debug("Failed to announce menu layout", zap.Error(err))
		}
	}

	if err := w.conn.Export(item{}, itemPath, itemIface); err != nil {
		return platform.NewOSError("export item", err)
	}
	if err := w.conn.Export(w.menu, menuPath, menuIface); err != nil {
		return platform.NewOSError("export menu", err)
	}

	props, err := prop.Export(w.conn, itemPath, prop.Map{itemIface: w.itemProps()})
	if err != nil {
		return platform.NewOSError("export item properties", err)
	}
	w.props = props

	menuProps, err := prop.Export(w.conn, menuPath, prop.Map{menuIface: {
		"Version":       {Value: uint32(3), Emit: prop.EmitFalse},
		"TextDirection": {Value: "ltr", Emit: prop.EmitFalse},
		"Status":        {Value: "normal", Emit: prop.EmitFalse},
		"IconThemePath": {Value: []string{}, Emit: prop.EmitFalse},
	}})
	if err != nil {
		return platform.NewOSError("export menu properties", err)
	}

	itemNode := &introspect.Node{
		Name: string(itemPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       itemIface,
				Methods:    introspect.Methods(item{}),
				Properties: props.Introspection(itemIface),
				Signals: []introspect.Signal{
					{Name: "NewTitle"},
					{Name: "NewIcon"},
					{Name: "NewToolTip"},
					{Name: "NewStatus", Args: []introspect.Arg{{Name: "status", Type: "s"}}},
				},
			},
		},
	}
	menuNode := &introspect.Node{
		Name: string(menuPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       menuIface,
				Methods:    introspect.Methods(w.menu),
				Properties: menuProps.Introspection(menuIface),
				Signals: []introspect.Signal{
					{Name: "LayoutUpdated", Args: []introspect.Arg{
						{Name: "revision", Type: "u"},
						{Name: "parent", Type: "i"},
					}},
				},
			},
		},
	}
	if err := w.conn.Export(introspect.NewIntrospectable(itemNode), itemPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return platform.NewOSError("export introspection", err)
	}
	if err := w.conn.Export(introspect.NewIntrospectable(menuNode), menuPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return platform.NewOSError("export introspection", err)
	}
	return nil
}

// itemProps lists the item properties. Those changed after export do not
// emit PropertiesChanged; hosts are told through the New* signals instead.
func (w *Window) itemProps() map[string]*prop.Prop {
	return map[string]*prop.Prop{
		"Category":      {Value: "ApplicationStatus", Emit: prop.EmitTrue},
		"Id":            {Value: w.appID, Emit: prop.EmitTrue},
		"Title":         {Value: w.appID, Emit: prop.EmitTrue},
		"Status":        {Value: "Active", Emit: prop.EmitTrue},
		"WindowId":      {Value: int32(0), Emit: prop.EmitTrue},
		"IconThemePath": {Value: "", Emit: prop.EmitFalse},
		"IconName":      {Value: "", Emit: prop.EmitFalse},
		"IconPixmap":    {Value: []pixmap{}, Emit: prop.EmitTrue},
		"ToolTip":       {Value: tooltip{IconPixmap: []pixmap{}}, Emit: prop.EmitFalse},
		"ItemIsMenu":    {Value: true, Emit: prop.EmitTrue},
		"Menu":          {Value: menuPath, Emit: prop.EmitTrue},
	}
}

func (w *Window) register() error {
	obj := w.conn.Object(watcherName, watcherPath)
	call := obj.Call(watcherIface+".RegisterStatusNotifierItem", 0, w.busName)
	return call.Err
}

func (w *Window) loop(signals <-chan *dbus.Signal) {
	defer close(w.done)
	w.logger.Debug("StatusNotifierItem exported", zap.String("bus_name", w.busName))

	for {
		select {
		case <-w.quit:
			w.logger.Debug("StatusNotifierItem loop stopped")
			return
		case sig, ok := <-signals:
			if !ok {
				w.logger.Warn("Session bus connection closed")
				return
			}
			if !watcherAppeared(sig) {
				continue
			}
			if err := w.register(); err != nil {
				w.logger.Warn("Failed to register with StatusNotifierWatcher", zap.Error(err))
			}
		}
	}
}

func watcherAppeared(sig *dbus.Signal) bool {
	if sig.Name != "org.freedesktop.DBus.NameOwnerChanged" || len(sig.Body) != 3 {
		return false
	}
	name, _ := sig.Body[0].(string)
	owner, _ := sig.Body[2].(string)
	return name == watcherName && owner != ""
}

func (w *Window) emit(path dbus.ObjectPath, name string, values ...interface{}) error {
	if w.conn == nil {
		return nil
	}
	if err := w.conn.Emit(path, name, values...); err != nil {
		return platform.NewOSError("emit "+name, err)
	}
	return nil
}

// setProp stores a property value. The item's mutable properties never
// emit, so SetMust cannot fail.
func (w *Window) setProp(name string, value interface{}) {
	if w.props == nil {
		return
	}
	w.props.SetMust(itemIface, name, value)
}

// stopped reports whether the item can no longer be changed.
func (w *Window) stopped() bool {
	if w.closed.Load() {
		return true
	}
	if w.done == nil {
		return false
	}
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *Window) addEntry(e menuEntry) error {
	if w.stopped() {
		return platform.ErrLoopStopped
	}
	if err := w.menu.add(e); err != nil {
		return platform.NewOSError("add menu entry", err)
	}
	return nil
}

// AddMenuEntry appends a labelled item and announces the new layout.
func (w *Window) AddMenuEntry(parent, id platform.MenuItemID, label string) error {
	return w.addEntry(menuEntry{parent: parent, id: id, label: label})
}

// AddMenuSeparator appends a separator.
func (w *Window) AddMenuSeparator(parent, id platform.MenuItemID) error {
	return w.addEntry(menuEntry{parent: parent, id: id, separator: true})
}

// AddSubMenu appends an entry whose children are the entries added with
// id as their parent.
func (w *Window) AddSubMenu(parent, id platform.MenuItemID, label string) error {
	return w.addEntry(menuEntry{parent: parent, id: id, label: label, submenu: true})
}

// SetIconFromFile publishes the file's directory as IconThemePath and its
// stem as IconName.
func (w *Window) SetIconFromFile(path string) error {
	if w.stopped() {
		return platform.ErrLoopStopped
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return platform.NewOSError("load icon", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return platform.NewOSError("load icon", err)
	}
	dir, name := iconLookup(abs)
	w.setProp("IconThemePath", dir)
	return w.setIconName(name)
}

// SetIconFromResource uses a named icon from the host's icon theme.
func (w *Window) SetIconFromResource(name string) error {
	if w.stopped() {
		return platform.ErrLoopStopped
	}
	w.setProp("IconThemePath", "")
	return w.setIconName(name)
}

func (w *Window) setIconName(name string) error {
	w.setProp("IconName", name)
	return w.emit(itemPath, itemIface+".NewIcon")
}

// SetIconFromBuffer is not offered on this backend.
func (w *Window) SetIconFromBuffer([]byte, uint32, uint32) error {
	return platform.NotImplemented("set icon from buffer")
}

// SetTooltip publishes text as the ToolTip title.
func (w *Window) SetTooltip(text string) error {
	if w.stopped() {
		return platform.ErrLoopStopped
	}
	w.setProp("ToolTip", tooltip{IconPixmap: []pixmap{}, Title: text})
	return w.emit(itemPath, itemIface+".NewToolTip")
}

// Quit stops the item loop.
func (w *Window) Quit() {
	w.quitOnce.Do(func() {
		close(w.quit)
	})
}

// Run waits for the item loop to stop.
func (w *Window) Run() error {
	<-w.done
	return nil
}

// Shutdown releases the bus name, which makes the watcher drop the item,
// and closes the connection. Later changes fail with ErrLoopStopped.
func (w *Window) Shutdown() error {
	w.shutdownOnce.Do(func() {
		w.closed.Store(true)
		if w.conn == nil {
			return
		}
		if _, err := w.conn.ReleaseName(w.busName); err != nil {
			w.shutdownErr = platform.NewOSError("release name", err)
		}
		if err := w.conn.Close(); err != nil && w.shutdownErr == nil {
			w.shutdownErr = platform.NewOSError("close session bus", err)
		}
	})
	return w.shutdownErr
}

// Affinity implements platform.Window.
func (w *Window) Affinity() platform.Affinity {
	return platform.OwnThread
}

// iconLookup splits an icon path into a theme search directory and an icon
// name without extension.
func iconLookup(path string) (dir, name string) {
	dir, file := filepath.Split(path)
	name = strings.TrimSuffix(file, filepath.Ext(file))
	return filepath.Clean(dir), name
}
