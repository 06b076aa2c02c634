package systray

// SubMenu appends entries to a nested menu created by AddSubMenu. Its
// methods behave like the Application methods of the same name.
type SubMenu struct {
	app *Application
	id  MenuItemID
}

// ID is the id of the entry that opens the submenu.
func (m *SubMenu) ID() MenuItemID {
	return m.id
}

// AddMenuItem appends a clickable entry and binds cb to it.
func (m *SubMenu) AddMenuItem(label string, cb Callback) (MenuItemID, error) {
	return m.app.addMenuItem(m.id, label, cb)
}

// AddMenuSeparator appends a separator.
func (m *SubMenu) AddMenuSeparator() (MenuItemID, error) {
	return m.app.addMenuSeparator(m.id)
}

// AddSubMenu appends a further nested menu.
func (m *SubMenu) AddSubMenu(label string) (*SubMenu, error) {
	return m.app.addSubMenu(m.id, label)
}
