//go:build linux && cgo

package gtk

/*
#include <stdint.h>
*/
import "C"

import (
	"runtime/cgo"

	"github.com/username/systray/internal/platform"
)

//export goGtkRunTask
func goGtkRunTask(task C.uintptr_t) {
	tasks.Run(uintptr(task))
}

//export goGtkMenuActivated
func goGtkMenuActivated(handle C.uintptr_t, id C.uint) {
	w, ok := cgo.Handle(handle).Value().(*Window)
	if !ok {
		return
	}
	w.sink.Send(platform.Event{MenuIndex: platform.MenuItemID(id)})
}
