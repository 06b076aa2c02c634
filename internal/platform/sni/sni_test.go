//go:build linux || freebsd || netbsd || openbsd

package sni

import (
	"os"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/username/systray/internal/platform"
)

type recordingSink struct {
	mu     sync.Mutex
	events []platform.Event
}

func (s *recordingSink) Send(ev platform.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Events() []platform.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]platform.Event(nil), s.events...)
}

func newTestWindow(sink platform.Sink) *Window {
	return &Window{
		logger: zap.NewNop(),
		appID:  "test",
		menu:   newDBusMenu(sink),
	}
}

func TestMenu_Layout(t *testing.T) {
	w := newTestWindow(&recordingSink{})
	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 0, "Open"))
	require.NoError(t, w.AddMenuSeparator(platform.RootMenu, 1))
	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 2, "Quit"))

	rev, layout, derr := w.menu.GetLayout(rootID, -1, nil)
	require.Nil(t, derr)
	assert.Equal(t, uint32(4), rev)
	assert.Equal(t, rootID, layout.ID)
	require.Len(t, layout.Children, 3)

	first := layout.Children[0].Value().(menuLayout)
	assert.Equal(t, int32(1), first.ID)
	assert.Equal(t, "Open", first.Properties["label"].Value())

	sep := layout.Children[1].Value().(menuLayout)
	assert.Equal(t, int32(2), sep.ID)
	assert.Equal(t, "separator", sep.Properties["type"].Value())

	_, shallow, derr := w.menu.GetLayout(rootID, 0, nil)
	require.Nil(t, derr)
	assert.Empty(t, shallow.Children)
}

func TestMenu_LayoutUnknownParent(t *testing.T) {
	w := newTestWindow(&recordingSink{})
	_, _, derr := w.menu.GetLayout(42, -1, nil)
	assert.NotNil(t, derr)
}

func TestMenu_ChangedReportsRevision(t *testing.T) {
	w := newTestWindow(&recordingSink{})
	var revisions []uint32
	w.menu.changed = func(rev uint32) { revisions = append(revisions, rev) }

	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 0, "A"))
	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 1, "B"))
	assert.Equal(t, []uint32{2, 3}, revisions)
}

func TestMenu_ClickedDispatches(t *testing.T) {
	sink := &recordingSink{}
	w := newTestWindow(sink)
	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 0, "A"))
	require.NoError(t, w.AddMenuSeparator(platform.RootMenu, 1))
	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 2, "B"))

	assert.Nil(t, w.menu.Event(3, "clicked", dbus.MakeVariant(""), 0))
	assert.Nil(t, w.menu.Event(1, "clicked", dbus.MakeVariant(""), 0))
	// Separators and non-click events are ignored.
	assert.Nil(t, w.menu.Event(2, "clicked", dbus.MakeVariant(""), 0))
	assert.Nil(t, w.menu.Event(1, "hovered", dbus.MakeVariant(""), 0))
	assert.NotNil(t, w.menu.Event(99, "clicked", dbus.MakeVariant(""), 0))

	assert.Equal(t, []platform.Event{{MenuIndex: 2}, {MenuIndex: 0}}, sink.Events())
}

func TestMenu_EventGroupReportsUnknownIDs(t *testing.T) {
	sink := &recordingSink{}
	w := newTestWindow(sink)
	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 0, "A"))

	idErrors, derr := w.menu.EventGroup([]menuEvent{
		{ID: 1, EventID: "clicked", Data: dbus.MakeVariant("")},
		{ID: 7, EventID: "clicked", Data: dbus.MakeVariant("")},
	})
	require.Nil(t, derr)
	assert.Equal(t, []int32{7}, idErrors)
	assert.Len(t, sink.Events(), 1)
}

func TestMenu_GroupPropertiesAndProperty(t *testing.T) {
	w := newTestWindow(&recordingSink{})
	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 0, "A"))
	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 1, "B"))

	props, derr := w.menu.GetGroupProperties([]int32{2, 9}, []string{"label"})
	require.Nil(t, derr)
	require.Len(t, props, 1)
	assert.Equal(t, int32(2), props[0].ID)
	assert.Equal(t, map[string]dbus.Variant{"label": dbus.MakeVariant("B")}, props[0].Properties)

	all, derr := w.menu.GetGroupProperties(nil, nil)
	require.Nil(t, derr)
	assert.Len(t, all, 2)

	v, derr := w.menu.GetProperty(1, "label")
	require.Nil(t, derr)
	assert.Equal(t, "A", v.Value())

	_, derr = w.menu.GetProperty(1, "icon-name")
	assert.NotNil(t, derr)
}

func TestWindow_Unsupported(t *testing.T) {
	w := newTestWindow(&recordingSink{})
	assert.ErrorIs(t, w.SetIconFromBuffer([]byte{1}, 1, 1), platform.ErrNotImplemented)
	assert.Equal(t, platform.OwnThread, w.Affinity())
}

func TestWindow_SetIconFromMissingFile(t *testing.T) {
	w := newTestWindow(&recordingSink{})
	var osErr *platform.OSError
	assert.ErrorAs(t, w.SetIconFromFile("/nonexistent/icon.png"), &osErr)
}

func TestWindow_MutationAfterStop(t *testing.T) {
	w := newTestWindow(&recordingSink{})
	w.done = make(chan struct{})
	close(w.done)
	assert.ErrorIs(t, w.AddMenuEntry(platform.RootMenu, 0, "A"), platform.ErrLoopStopped)
}

func TestMenu_SubMenuLayout(t *testing.T) {
	sink := &recordingSink{}
	w := newTestWindow(sink)
	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 0, "Open"))
	require.NoError(t, w.AddSubMenu(platform.RootMenu, 1, "More"))
	require.NoError(t, w.AddMenuEntry(1, 2, "About"))
	require.NoError(t, w.AddMenuSeparator(1, 3))
	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 4, "Quit"))

	_, layout, derr := w.menu.GetLayout(rootID, -1, nil)
	require.Nil(t, derr)
	require.Len(t, layout.Children, 3)

	more := layout.Children[1].Value().(menuLayout)
	assert.Equal(t, int32(2), more.ID)
	assert.Equal(t, "submenu", more.Properties["children-display"].Value())
	require.Len(t, more.Children, 2)
	assert.Equal(t, "About", more.Children[0].Value().(menuLayout).Properties["label"].Value())

	// Depth 1 stops below the top level.
	_, shallow, derr := w.menu.GetLayout(rootID, 1, nil)
	require.Nil(t, derr)
	assert.Empty(t, shallow.Children[1].Value().(menuLayout).Children)

	_, sub, derr := w.menu.GetLayout(2, -1, nil)
	require.Nil(t, derr)
	assert.Len(t, sub.Children, 2)

	// Opening a submenu is not a click.
	assert.Nil(t, w.menu.Event(2, "clicked", dbus.MakeVariant(""), 0))
	assert.Nil(t, w.menu.Event(3, "clicked", dbus.MakeVariant(""), 0))
	assert.Equal(t, []platform.Event{{MenuIndex: 2}}, sink.Events())
}

func TestMenu_UnknownParent(t *testing.T) {
	w := newTestWindow(&recordingSink{})
	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 0, "Open"))

	var osErr *platform.OSError
	assert.ErrorAs(t, w.AddMenuEntry(7, 1, "Lost"), &osErr)
	// Plain entries cannot hold children.
	assert.ErrorIs(t, w.AddMenuEntry(0, 1, "Lost"), errUnknownParent)
}

func TestWindow_ChangesAfterShutdown(t *testing.T) {
	w := newTestWindow(&recordingSink{})
	require.NoError(t, w.Shutdown())

	assert.ErrorIs(t, w.SetTooltip("late"), platform.ErrLoopStopped)
	assert.ErrorIs(t, w.SetIconFromResource("late"), platform.ErrLoopStopped)
	assert.ErrorIs(t, w.AddMenuEntry(platform.RootMenu, 0, "late"), platform.ErrLoopStopped)
}

// TestWindow_SessionBus runs against a real session bus, for example under
// dbus-run-session. No watcher is needed.
func TestWindow_SessionBus(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no session bus")
	}
	sink := &recordingSink{}
	w, err := New(sink, platform.Options{AppID: "systray-test"})
	if err != nil {
		t.Skipf("session bus unavailable: %v", err)
	}

	require.NoError(t, w.AddMenuEntry(platform.RootMenu, 0, "Open"))
	require.NoError(t, w.AddSubMenu(platform.RootMenu, 1, "More"))
	require.NoError(t, w.AddMenuEntry(1, 2, "About"))
	require.NoError(t, w.SetTooltip("hello"))
	require.NoError(t, w.SetIconFromResource("applications-system"))

	v, derr := w.props.Get(itemIface, "ToolTip")
	require.Nil(t, derr)
	assert.Equal(t, "hello", v.Value().(tooltip).Title)

	require.NoError(t, w.Shutdown())
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, w.SetTooltip("after"), platform.ErrLoopStopped)
		assert.ErrorIs(t, w.SetIconFromResource("after"), platform.ErrLoopStopped)
	})

	w.Quit()
	assert.NoError(t, w.Run())
}

func TestIconLookup(t *testing.T) {
	dir, name := iconLookup("/usr/share/icons/app/tray.svg")
	assert.Equal(t, "/usr/share/icons/app", dir)
	assert.Equal(t, "tray", name)
}

func TestWatcherAppeared(t *testing.T) {
	sig := &dbus.Signal{
		Name: "org.freedesktop.DBus.NameOwnerChanged",
		Body: []interface{}{watcherName, "", ":1.42"},
	}
	assert.True(t, watcherAppeared(sig))

	sig.Body = []interface{}{watcherName, ":1.42", ""}
	assert.False(t, watcherAppeared(sig))
}
