//go:build darwin && cgo

package cocoa

/*
#include <stdint.h>
*/
import "C"

import (
	"runtime/cgo"

	"github.com/username/systray/internal/platform"
)

//export goCocoaRunTask
func goCocoaRunTask(task C.uintptr_t) {
	tasks.Run(uintptr(task))
}

//export goCocoaMenuClicked
func goCocoaMenuClicked(handle C.uintptr_t, id C.uint) {
	w, ok := cgo.Handle(handle).Value().(*Window)
	if !ok {
		return
	}
	w.sink.Send(platform.Event{MenuIndex: platform.MenuItemID(id)})
}
