//go:build linux || freebsd || netbsd || openbsd

package sni

import (
	"errors"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/username/systray/internal/platform"
)

const (
	menuPath  = dbus.ObjectPath("/MenuBar")
	menuIface = "com.canonical.dbusmenu"

	// rootID is the invisible container every entry hangs from. Entries use
	// their MenuItemID shifted by one.
	rootID int32 = 0
)

var errUnknownParent = errors.New("unknown parent menu")

type menuEntry struct {
	parent    platform.MenuItemID
	id        platform.MenuItemID
	label     string
	separator bool
	submenu   bool
}

func layoutID(id platform.MenuItemID) int32 {
	if id == platform.RootMenu {
		return rootID
	}
	return int32(id) + 1
}

// menuLayout is the (ia{sv}av) structure returned by GetLayout.
type menuLayout struct {
	ID         int32
	Properties map[string]dbus.Variant
	Children   []dbus.Variant
}

// menuProps is one element of the a(ia{sv}) returned by GetGroupProperties.
type menuProps struct {
	ID         int32
	Properties map[string]dbus.Variant
}

// menuEvent is one element of the a(isvu) accepted by EventGroup.
type menuEvent struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

// dbusMenu serves com.canonical.dbusmenu for a tree of entries kept in
// insertion order.
type dbusMenu struct {
	sink platform.Sink

	mu       sync.Mutex
	entries  []menuEntry
	revision uint32

	// changed is called with the new revision after every mutation.
	changed func(revision uint32)
}

func newDBusMenu(sink platform.Sink) *dbusMenu {
	return &dbusMenu{sink: sink, revision: 1}
}

func (m *dbusMenu) add(e menuEntry) error {
	m.mu.Lock()
	if e.parent != platform.RootMenu {
		if p, ok := m.lookup(layoutID(e.parent)); !ok || !p.submenu {
			m.mu.Unlock()
			return errUnknownParent
		}
	}
	m.entries = append(m.entries, e)
	m.revision++
	rev := m.revision
	changed := m.changed
	m.mu.Unlock()

	if changed != nil {
		changed(rev)
	}
	return nil
}

func (m *dbusMenu) lookup(id int32) (menuEntry, bool) {
	if id <= rootID {
		return menuEntry{}, false
	}
	for _, e := range m.entries {
		if layoutID(e.id) == id {
			return e, true
		}
	}
	return menuEntry{}, false
}

func entryProps(e menuEntry) map[string]dbus.Variant {
	if e.separator {
		return map[string]dbus.Variant{
			"type":    dbus.MakeVariant("separator"),
			"visible": dbus.MakeVariant(true),
		}
	}
	props := map[string]dbus.Variant{
		"label":   dbus.MakeVariant(e.label),
		"enabled": dbus.MakeVariant(true),
		"visible": dbus.MakeVariant(true),
	}
	if e.submenu {
		props["children-display"] = dbus.MakeVariant("submenu")
	}
	return props
}

func rootProps() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"children-display": dbus.MakeVariant("submenu"),
	}
}

func filterProps(props map[string]dbus.Variant, names []string) map[string]dbus.Variant {
	if len(names) == 0 {
		return props
	}
	out := make(map[string]dbus.Variant, len(names))
	for _, n := range names {
		if v, ok := props[n]; ok {
			out[n] = v
		}
	}
	return out
}

// layout builds the node for id and, while depth allows, its children. A
// negative depth means the whole subtree.
func (m *dbusMenu) layout(id int32, props map[string]dbus.Variant, depth int32, names []string) menuLayout {
	node := menuLayout{
		ID:         id,
		Properties: filterProps(props, names),
		Children:   []dbus.Variant{},
	}
	if depth == 0 {
		return node
	}
	for _, e := range m.entries {
		if layoutID(e.parent) != id {
			continue
		}
		child := m.layout(layoutID(e.id), entryProps(e), depth-1, names)
		node.Children = append(node.Children, dbus.MakeVariant(child))
	}
	return node
}

// GetLayout returns the subtree under parentID.
func (m *dbusMenu) GetLayout(parentID int32, recursionDepth int32, propertyNames []string) (uint32, menuLayout, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	props := rootProps()
	if parentID != rootID {
		e, ok := m.lookup(parentID)
		if !ok {
			return m.revision, menuLayout{}, dbus.MakeFailedError(errUnknownItem)
		}
		props = entryProps(e)
	}
	return m.revision, m.layout(parentID, props, recursionDepth, propertyNames), nil
}

func (m *dbusMenu) GetGroupProperties(ids []int32, propertyNames []string) ([]menuProps, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]menuProps, 0, len(ids))
	if len(ids) == 0 {
		for _, e := range m.entries {
			out = append(out, menuProps{ID: layoutID(e.id), Properties: filterProps(entryProps(e), propertyNames)})
		}
		return out, nil
	}
	for _, id := range ids {
		if id == rootID {
			out = append(out, menuProps{ID: rootID, Properties: filterProps(rootProps(), propertyNames)})
			continue
		}
		if e, ok := m.lookup(id); ok {
			out = append(out, menuProps{ID: id, Properties: filterProps(entryProps(e), propertyNames)})
		}
	}
	return out, nil
}

func (m *dbusMenu) GetProperty(id int32, name string) (dbus.Variant, *dbus.Error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	props := rootProps()
	if id != rootID {
		e, ok := m.lookup(id)
		if !ok {
			return dbus.Variant{}, dbus.MakeFailedError(errUnknownItem)
		}
		props = entryProps(e)
	}
	v, ok := props[name]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(errUnknownProperty)
	}
	return v, nil
}

// Event forwards "clicked" on a labelled entry to the sink. Other events
// are accepted and ignored.
func (m *dbusMenu) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) *dbus.Error {
	if eventID != "clicked" {
		return nil
	}

	m.mu.Lock()
	e, ok := m.lookup(id)
	m.mu.Unlock()
	if !ok {
		return dbus.MakeFailedError(errUnknownItem)
	}
	if e.separator || e.submenu {
		return nil
	}
	m.sink.Send(platform.Event{MenuIndex: e.id})
	return nil
}

func (m *dbusMenu) EventGroup(events []menuEvent) ([]int32, *dbus.Error) {
	var idErrors []int32
	for _, ev := range events {
		if err := m.Event(ev.ID, ev.EventID, ev.Data, ev.Timestamp); err != nil {
			idErrors = append(idErrors, ev.ID)
		}
	}
	return idErrors, nil
}

func (m *dbusMenu) AboutToShow(id int32) (bool, *dbus.Error) {
	return false, nil
}

func (m *dbusMenu) AboutToShowGroup(ids []int32) ([]int32, []int32, *dbus.Error) {
	return []int32{}, []int32{}, nil
}
