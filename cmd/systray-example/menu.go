package main

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/username/systray/internal/config"
	"github.com/username/systray/pkg/systray"
)

// menu turns configured items into tray entries and their callbacks.
type menu struct {
	app    *systray.Application
	logger *zap.Logger
	out    io.Writer
}

func newMenu(app *systray.Application, logger *zap.Logger, out io.Writer) *menu {
	return &menu{app: app, logger: logger, out: out}
}

// container is the tray menu itself or one of its submenus.
type container interface {
	AddMenuItem(label string, cb systray.Callback) (systray.MenuItemID, error)
	AddMenuSeparator() (systray.MenuItemID, error)
	AddSubMenu(label string) (*systray.SubMenu, error)
}

func (m *menu) build(items []config.ItemConfig) error {
	return m.fill(m.app, items)
}

func (m *menu) fill(c container, items []config.ItemConfig) error {
	for _, item := range items {
		switch {
		case item.Separator:
			if _, err := c.AddMenuSeparator(); err != nil {
				return err
			}
		case len(item.Items) > 0:
			sub, err := c.AddSubMenu(item.Label)
			if err != nil {
				return err
			}
			if err := m.fill(sub, item.Items); err != nil {
				return err
			}
		default:
			if _, err := c.AddMenuItem(item.Label, m.callback(item)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *menu) callback(item config.ItemConfig) systray.Callback {
	switch item.Action {
	case config.ActionPrint:
		return systray.Action(func(*systray.Application) {
			fmt.Fprintln(m.out, item.Message)
		})
	case config.ActionAddItem:
		return func(app *systray.Application) error {
			if _, err := app.AddMenuItem("Interior item", systray.Action(func(*systray.Application) {
				fmt.Fprintln(m.out, "Interior item clicked")
			})); err != nil {
				return err
			}
			_, err := app.AddMenuSeparator()
			return err
		}
	case config.ActionTooltip:
		return func(app *systray.Application) error {
			return m.ignoreUnsupported(app.SetTooltip(item.Message))
		}
	case config.ActionQuit:
		return systray.Action(func(app *systray.Application) {
			app.Quit()
		})
	default:
		return func(*systray.Application) error {
			return fmt.Errorf("unknown action %q", item.Action)
		}
	}
}

// applyAppearance sets tooltip and icon. Failures are logged: a tray with
// the wrong icon is still usable.
func (m *menu) applyAppearance(tray config.TrayConfig) {
	if tray.Tooltip != "" {
		if err := m.ignoreUnsupported(m.app.SetTooltip(tray.Tooltip)); err != nil {
			m.logger.Warn("Failed to set tooltip", zap.Error(err))
		}
	}

	var err error
	switch {
	case tray.IconFile != "":
		err = m.app.SetIconFromFile(tray.IconFile)
	case tray.IconResource != "":
		err = m.app.SetIconFromResource(tray.IconResource)
	}
	if err = m.ignoreUnsupported(err); err != nil {
		m.logger.Warn("Failed to set icon", zap.Error(err))
	}
}

func (m *menu) ignoreUnsupported(err error) error {
	if errors.Is(err, systray.ErrNotImplemented) {
		m.logger.Debug("Not supported on this platform", zap.Error(err))
		return nil
	}
	return err
}
