//go:build windows

package win32

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	wmDestroy     = 0x0002
	wmClose       = 0x0010
	wmNull        = 0x0000
	wmLButtonUp   = 0x0202
	wmRButtonUp   = 0x0205
	wmUser        = 0x0400
	wmApp         = 0x8000
	wmMenuCommand = 0x0126

	// wmTrayIcon is the notify icon callback message.
	wmTrayIcon = wmUser + 1
	// wmRunTasks wakes the loop to drain marshalled tasks.
	wmRunTasks = wmApp + 1

	nimAdd    = 0x00000000
	nimModify = 0x00000001
	nimDelete = 0x00000002

	nifMessage = 0x00000001
	nifIcon    = 0x00000002
	nifTip     = 0x00000004

	miimState   = 0x00000001
	miimID      = 0x00000002
	miimSubMenu = 0x00000004
	miimString  = 0x00000040
	miimFType   = 0x00000100

	mftString    = 0x00000000
	mftSeparator = 0x00000800

	mimStyle          = 0x00000010
	mimApplyToSubMenu = 0x80000000
	mnsNotifyByPos    = 0x08000000

	tpmLeftAlign   = 0x0000
	tpmBottomAlign = 0x0020

	imageIcon      = 1
	lrDefaultColor = 0x00000000
	lrLoadFromFile = 0x00000010
	lrDefaultSize  = 0x00000040

	wsOverlappedWindow = 0x00CF0000
	cwUseDefault       = 0x80000000

	idiApplication = 32512
	idcArrow       = 32512

	iconResourceVersion = 0x00030000
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	shell32  = windows.NewLazySystemDLL("shell32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	pGetModuleHandle = kernel32.NewProc("GetModuleHandleW")

	pShellNotifyIcon = shell32.NewProc("Shell_NotifyIconW")

	pRegisterClassEx             = user32.NewProc("RegisterClassExW")
	pUnregisterClass             = user32.NewProc("UnregisterClassW")
	pCreateWindowEx              = user32.NewProc("CreateWindowExW")
	pDestroyWindow               = user32.NewProc("DestroyWindow")
	pDefWindowProc               = user32.NewProc("DefWindowProcW")
	pGetMessage                  = user32.NewProc("GetMessageW")
	pTranslateMessage            = user32.NewProc("TranslateMessage")
	pDispatchMessage             = user32.NewProc("DispatchMessageW")
	pPostMessage                 = user32.NewProc("PostMessageW")
	pPostQuitMessage             = user32.NewProc("PostQuitMessage")
	pCreatePopupMenu             = user32.NewProc("CreatePopupMenu")
	pDestroyMenu                 = user32.NewProc("DestroyMenu")
	pSetMenuInfo                 = user32.NewProc("SetMenuInfo")
	pInsertMenuItem              = user32.NewProc("InsertMenuItemW")
	pGetMenuItemCount            = user32.NewProc("GetMenuItemCount")
	pGetMenuItemID               = user32.NewProc("GetMenuItemID")
	pTrackPopupMenu              = user32.NewProc("TrackPopupMenu")
	pSetForegroundWindow         = user32.NewProc("SetForegroundWindow")
	pGetCursorPos                = user32.NewProc("GetCursorPos")
	pLoadImage                   = user32.NewProc("LoadImageW")
	pLoadIcon                    = user32.NewProc("LoadIconW")
	pLoadCursor                  = user32.NewProc("LoadCursorW")
	pDestroyIcon                 = user32.NewProc("DestroyIcon")
	pCreateIconFromResourceEx    = user32.NewProc("CreateIconFromResourceEx")
	pLookupIconIDFromDirectoryEx = user32.NewProc("LookupIconIdFromDirectoryEx")
)

// notifyIconData is NOTIFYICONDATAW.
type notifyIconData struct {
	Size                       uint32
	Wnd                        windows.HWND
	ID, Flags, CallbackMessage uint32
	Icon                       windows.Handle
	Tip                        [tipCapacity]uint16
	State, StateMask           uint32
	Info                       [256]uint16
	Timeout                    uint32
	InfoTitle                  [64]uint16
	InfoFlags                  uint32
	GUIDItem                   windows.GUID
	BalloonIcon                windows.Handle
}

func (nid *notifyIconData) call(op uintptr, name string) error {
	nid.Size = uint32(unsafe.Sizeof(*nid))
	res, _, err := pShellNotifyIcon.Call(op, uintptr(unsafe.Pointer(nid)))
	if res == 0 {
		return lastError(name, err)
	}
	return nil
}

func (nid *notifyIconData) add() error    { return nid.call(nimAdd, "Shell_NotifyIconW(NIM_ADD)") }
func (nid *notifyIconData) modify() error { return nid.call(nimModify, "Shell_NotifyIconW(NIM_MODIFY)") }
func (nid *notifyIconData) delete() error { return nid.call(nimDelete, "Shell_NotifyIconW(NIM_DELETE)") }

// wndClassEx is WNDCLASSEXW.
type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

// menuItemInfo is MENUITEMINFOW.
type menuItemInfo struct {
	Size      uint32
	Mask      uint32
	Type      uint32
	State     uint32
	ID        uint32
	SubMenu   windows.Handle
	Checked   windows.Handle
	Unchecked windows.Handle
	ItemData  uintptr
	TypeData  *uint16
	Cch       uint32
	BMPItem   windows.Handle
}

// menuInfo is MENUINFO.
type menuInfo struct {
	Size          uint32
	Mask          uint32
	Style         uint32
	YMax          uint32
	Back          windows.Handle
	ContextHelpID uint32
	MenuData      uintptr
}

type point struct {
	X, Y int32
}

// msg is MSG.
type msg struct {
	Wnd     windows.HWND
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}
