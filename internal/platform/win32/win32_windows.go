//go:build windows

// Package win32 is the Windows tray backend: a hidden window that owns a
// shell notification icon and a popup menu, driven by a message loop on a
// dedicated OS thread.
package win32

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/username/systray/internal/platform"
)

// notifyIconID is the uID of the single icon owned by each window.
const notifyIconID = 1

// Window implements platform.Window on top of Shell_NotifyIconW.
type Window struct {
	sink      platform.Sink
	logger    *zap.Logger
	className string

	// Written on the loop thread before New returns, read-only afterwards.
	instance windows.Handle
	hwnd     windows.HWND
	menu     windows.Handle
	threadID uint32

	// Loop thread only.
	menus           map[platform.MenuItemID]windows.Handle
	classRegistered bool
	iconAdded       bool
	destroyed       bool
	icon            windows.Handle

	tasksMu sync.Mutex
	tasks   []*platform.Task

	quitOnce sync.Once
	loopErr  error
	done     chan struct{}
}

// New creates the hidden window and the notify icon on a new OS thread and
// starts its message loop.
func New(sink platform.Sink, opts platform.Options) (*Window, error) {
	className := opts.AppID
	if className == "" {
		className = "systray-" + uuid.NewString()
	}
	w := &Window{
		sink:      sink,
		logger:    opts.Log().Named("win32"),
		className: className,
		menus:     make(map[platform.MenuItemID]windows.Handle),
		done:      make(chan struct{}),
	}

	ready := make(chan error, 1)
	go w.loop(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Window) loop(ready chan<- error) {
	// The window, the menu and the icon belong to this thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	if err := w.init(); err != nil {
		w.cleanup()
		ready <- err
		return
	}
	ready <- nil
	w.logger.Debug("Message loop started", zap.String("class", w.className))

	w.pump()
	w.cancelTasks()
	w.cleanup()
	w.logger.Debug("Message loop stopped")
}

func (w *Window) init() error {
	w.threadID = windows.GetCurrentThreadId()

	instance, _, err := pGetModuleHandle.Call(0)
	if instance == 0 {
		return lastError("GetModuleHandleW", err)
	}
	w.instance = windows.Handle(instance)

	className, err := windows.UTF16PtrFromString(w.className)
	if err != nil {
		return platform.NewOSError("encode class name", err)
	}
	defaultIcon, _, _ := pLoadIcon.Call(0, idiApplication)
	cursor, _, _ := pLoadCursor.Call(0, idcArrow)

	wc := wndClassEx{
		WndProc:    windows.NewCallback(w.windowProc),
		Instance:   w.instance,
		Icon:       windows.Handle(defaultIcon),
		Cursor:     windows.Handle(cursor),
		Background: windows.Handle(6), // COLOR_WINDOW + 1
		ClassName:  className,
	}
	wc.Size = uint32(unsafe.Sizeof(wc))
	if r, _, err := pRegisterClassEx.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
		return lastError("RegisterClassExW", err)
	}
	w.classRegistered = true

	hwnd, _, err := pCreateWindowEx.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(className)),
		wsOverlappedWindow,
		cwUseDefault, 0, cwUseDefault, 0,
		0, 0,
		uintptr(w.instance),
		0,
	)
	if hwnd == 0 {
		return lastError("CreateWindowExW", err)
	}
	w.hwnd = windows.HWND(hwnd)

	menu, err := newPopupMenu()
	if err != nil {
		return err
	}
	w.menu = menu

	nid := w.notifyIcon()
	nid.Flags = nifMessage
	nid.CallbackMessage = wmTrayIcon
	if err := nid.add(); err != nil {
		return err
	}
	w.iconAdded = true
	return nil
}

func (w *Window) pump() {
	var m msg
	for {
		r, _, err := pGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(r) {
		case -1:
			w.loopErr = lastError("GetMessageW", err)
			w.logger.Error("Message loop failed", zap.Error(w.loopErr))
			return
		case 0:
			return
		}
		pTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		pDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}
}

// newPopupMenu creates a menu that reports clicks as WM_MENUCOMMAND carrying
// the item position.
func newPopupMenu() (windows.Handle, error) {
	menu, _, err := pCreatePopupMenu.Call()
	if menu == 0 {
		return 0, lastError("CreatePopupMenu", err)
	}
	mi := menuInfo{
		Mask:  mimApplyToSubMenu | mimStyle,
		Style: mnsNotifyByPos,
	}
	mi.Size = uint32(unsafe.Sizeof(mi))
	if r, _, err := pSetMenuInfo.Call(menu, uintptr(unsafe.Pointer(&mi))); r == 0 {
		pDestroyMenu.Call(menu)
		return 0, lastError("SetMenuInfo", err)
	}
	return windows.Handle(menu), nil
}

// cleanup releases everything init created. Runs on the loop thread.
func (w *Window) cleanup() {
	if err := w.removeIcon(); err != nil {
		w.logger.Warn("Failed to remove notify icon", zap.Error(err))
	}
	if w.icon != 0 {
		pDestroyIcon.Call(uintptr(w.icon))
		w.icon = 0
	}
	// Submenus are destroyed along with the menu holding them.
	if w.menu != 0 {
		pDestroyMenu.Call(uintptr(w.menu))
	}
	if w.hwnd != 0 && !w.destroyed {
		pDestroyWindow.Call(uintptr(w.hwnd))
	}
	if w.classRegistered {
		className, _ := windows.UTF16PtrFromString(w.className)
		pUnregisterClass.Call(uintptr(unsafe.Pointer(className)), uintptr(w.instance))
	}
}

func (w *Window) windowProc(hwnd uintptr, message uint32, wParam, lParam uintptr) uintptr {
	switch message {
	case wmMenuCommand:
		// With MNS_NOTIFYBYPOS wParam is the position and lParam the menu.
		id, _, _ := pGetMenuItemID.Call(lParam, wParam)
		if uint32(id) != 0xFFFFFFFF {
			w.sink.Send(platform.Event{MenuIndex: platform.MenuItemID(uint32(id))})
		}
		return 0
	case wmTrayIcon:
		switch uint32(lParam) {
		case wmLButtonUp, wmRButtonUp:
			w.showMenu(hwnd)
		}
		return 0
	case wmRunTasks:
		w.runTasks()
		return 0
	case wmDestroy:
		if err := w.removeIcon(); err != nil {
			w.logger.Warn("Failed to remove notify icon", zap.Error(err))
		}
		w.destroyed = true
		pPostQuitMessage.Call(0)
		return 0
	}
	r, _, _ := pDefWindowProc.Call(hwnd, uintptr(message), wParam, lParam)
	return r
}

func (w *Window) showMenu(hwnd uintptr) {
	var p point
	if r, _, _ := pGetCursorPos.Call(uintptr(unsafe.Pointer(&p))); r == 0 {
		return
	}
	// The menu only dismisses on outside clicks when the window is in the
	// foreground, and needs a posted message afterwards (KB135788).
	pSetForegroundWindow.Call(hwnd)
	pTrackPopupMenu.Call(
		uintptr(w.menu),
		tpmBottomAlign|tpmLeftAlign,
		uintptr(p.X), uintptr(p.Y),
		0, hwnd, 0,
	)
	pPostMessage.Call(hwnd, wmNull, 0, 0)
}

// post queues t for the loop thread and wakes it up.
func (w *Window) post(t *platform.Task) error {
	w.tasksMu.Lock()
	w.tasks = append(w.tasks, t)
	w.tasksMu.Unlock()

	if r, _, err := pPostMessage.Call(uintptr(w.hwnd), wmRunTasks, 0, 0); r == 0 {
		return lastError("PostMessageW", err)
	}
	return nil
}

func (w *Window) takeTasks() []*platform.Task {
	w.tasksMu.Lock()
	defer w.tasksMu.Unlock()
	tasks := w.tasks
	w.tasks = nil
	return tasks
}

func (w *Window) runTasks() {
	for _, t := range w.takeTasks() {
		t.Run()
	}
}

func (w *Window) cancelTasks() {
	for _, t := range w.takeTasks() {
		t.Cancel()
	}
}

// call runs fn on the loop thread.
func (w *Window) call(fn func() error) error {
	if windows.GetCurrentThreadId() == w.threadID {
		return fn()
	}
	return platform.Call(w.post, w.done, fn)
}

func (w *Window) notifyIcon() *notifyIconData {
	return &notifyIconData{Wnd: w.hwnd, ID: notifyIconID}
}

func (w *Window) removeIcon() error {
	if !w.iconAdded {
		return nil
	}
	w.iconAdded = false
	return w.notifyIcon().delete()
}

// AddMenuEntry appends a clickable item whose command id is id.
func (w *Window) AddMenuEntry(parent, id platform.MenuItemID, label string) error {
	text, err := windows.UTF16FromString(label)
	if err != nil {
		return platform.NewOSError("encode menu label", err)
	}
	return w.call(func() error {
		item := menuItemInfo{
			Mask:     miimFType | miimString | miimID | miimState,
			Type:     mftString,
			ID:       uint32(id),
			TypeData: &text[0],
			Cch:      uint32(len(text) - 1),
		}
		return w.appendItem(parent, &item)
	})
}

// AddMenuSeparator appends a separator whose command id is id.
func (w *Window) AddMenuSeparator(parent, id platform.MenuItemID) error {
	return w.call(func() error {
		item := menuItemInfo{
			Mask: miimFType | miimID,
			Type: mftSeparator,
			ID:   uint32(id),
		}
		return w.appendItem(parent, &item)
	})
}

// AddSubMenu appends an item opening a new popup menu, which later entries
// reach through id.
func (w *Window) AddSubMenu(parent, id platform.MenuItemID, label string) error {
	text, err := windows.UTF16FromString(label)
	if err != nil {
		return platform.NewOSError("encode menu label", err)
	}
	return w.call(func() error {
		sub, err := newPopupMenu()
		if err != nil {
			return err
		}
		item := menuItemInfo{
			Mask:     miimFType | miimString | miimID | miimSubMenu,
			Type:     mftString,
			ID:       uint32(id),
			SubMenu:  sub,
			TypeData: &text[0],
			Cch:      uint32(len(text) - 1),
		}
		if err := w.appendItem(parent, &item); err != nil {
			pDestroyMenu.Call(uintptr(sub))
			return err
		}
		w.menus[id] = sub
		return nil
	})
}

func (w *Window) menuFor(parent platform.MenuItemID) (windows.Handle, error) {
	if parent == platform.RootMenu {
		return w.menu, nil
	}
	if m, ok := w.menus[parent]; ok {
		return m, nil
	}
	return 0, platform.NewOSError("add menu entry", fmt.Errorf("unknown parent menu %d", parent))
}

func (w *Window) appendItem(parent platform.MenuItemID, item *menuItemInfo) error {
	menu, err := w.menuFor(parent)
	if err != nil {
		return err
	}
	item.Size = uint32(unsafe.Sizeof(*item))
	count, _, err := pGetMenuItemCount.Call(uintptr(menu))
	if int32(count) == -1 {
		return lastError("GetMenuItemCount", err)
	}
	if r, _, err := pInsertMenuItem.Call(uintptr(menu), count, 1, uintptr(unsafe.Pointer(item))); r == 0 {
		return lastError("InsertMenuItemW", err)
	}
	return nil
}

// SetIconFromFile loads an .ico file.
func (w *Window) SetIconFromFile(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return platform.NewOSError("encode icon path", err)
	}
	return w.call(func() error {
		h, _, err := pLoadImage.Call(0, uintptr(unsafe.Pointer(p)), imageIcon, 0, 0, lrLoadFromFile|lrDefaultSize)
		if h == 0 {
			return lastError("LoadImageW", err)
		}
		return w.setIcon(windows.Handle(h))
	})
}

// SetIconFromResource loads an icon resource linked into the executable.
func (w *Window) SetIconFromResource(name string) error {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return platform.NewOSError("encode resource name", err)
	}
	return w.call(func() error {
		h, _, err := pLoadImage.Call(uintptr(w.instance), uintptr(unsafe.Pointer(p)), imageIcon, 0, 0, lrDefaultSize)
		if h == 0 {
			return lastError("LoadImageW", err)
		}
		return w.setIcon(windows.Handle(h))
	})
}

// SetIconFromBuffer accepts the bytes of an .ico file or of a single icon
// resource (PNG or DIB).
func (w *Window) SetIconFromBuffer(buf []byte, width, height uint32) error {
	if len(buf) == 0 {
		return platform.NewOSError("load icon from buffer", errors.New("empty buffer"))
	}
	data := append([]byte(nil), buf...)
	return w.call(func() error {
		bits := data
		if isIconDirectory(data) {
			offset, _, _ := pLookupIconIDFromDirectoryEx.Call(
				uintptr(unsafe.Pointer(&data[0])), 1,
				uintptr(width), uintptr(height), lrDefaultColor)
			if offset == 0 || int(offset) >= len(data) {
				return platform.NewOSError("LookupIconIdFromDirectoryEx", nil)
			}
			bits = data[offset:]
		}
		h, _, err := pCreateIconFromResourceEx.Call(
			uintptr(unsafe.Pointer(&bits[0])), uintptr(len(bits)), 1,
			iconResourceVersion, uintptr(width), uintptr(height), lrDefaultColor)
		runtime.KeepAlive(data)
		if h == 0 {
			return lastError("CreateIconFromResourceEx", err)
		}
		return w.setIcon(windows.Handle(h))
	})
}

func (w *Window) setIcon(h windows.Handle) error {
	nid := w.notifyIcon()
	nid.Flags = nifIcon
	nid.Icon = h
	if err := nid.modify(); err != nil {
		pDestroyIcon.Call(uintptr(h))
		return err
	}
	if w.icon != 0 {
		pDestroyIcon.Call(uintptr(w.icon))
	}
	w.icon = h
	return nil
}

// SetTooltip sets the hover text, truncated to what the shell stores.
func (w *Window) SetTooltip(text string) error {
	tip := tooltipText(text)
	return w.call(func() error {
		nid := w.notifyIcon()
		nid.Flags = nifTip
		nid.Tip = tip
		return nid.modify()
	})
}

// Quit closes the window; WM_DESTROY removes the icon and ends the loop.
func (w *Window) Quit() {
	w.quitOnce.Do(func() {
		if r, _, err := pPostMessage.Call(uintptr(w.hwnd), wmClose, 0, 0); r == 0 {
			w.logger.Debug("Quit posted to a closed window", zap.Error(lastError("PostMessageW", err)))
		}
	})
}

// Run waits for the message loop thread to exit.
func (w *Window) Run() error {
	<-w.done
	return w.loopErr
}

// Shutdown removes the icon. Once the loop has exited the icon is gone
// already.
func (w *Window) Shutdown() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	err := w.call(w.removeIcon)
	if errors.Is(err, platform.ErrLoopStopped) {
		return nil
	}
	return err
}

// Affinity implements platform.Window.
func (w *Window) Affinity() platform.Affinity {
	return platform.OwnThread
}
