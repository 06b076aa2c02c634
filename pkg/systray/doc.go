// Package systray places an icon with a popup menu in the system tray
// (notification area) on Windows, Linux and macOS.
//
// Menu clicks are delivered by the native UI thread as events on an
// unbounded FIFO channel; WaitForMessage consumes them and invokes the
// registered callbacks one at a time.
//
// Thread topology differs per backend. On Windows and Linux the native loop
// runs on a dedicated OS thread and WaitForMessage may be called from any
// goroutine. On macOS (and with the fynesystray build tag) the native loop
// must own the process main thread, so WaitForMessage has to be called from
// main; callbacks then run on a secondary goroutine.
//
//	app, err := systray.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	app.AddMenuItem("Quit", func(a *systray.Application) error {
//		a.Quit()
//		return nil
//	})
//	if err := app.WaitForMessage(); err != nil {
//		log.Fatal(err)
//	}
package systray
