package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("ICON_DIR", "/opt/icons")
	path := writeConfig(t, t.TempDir(), `
tray:
  tooltip: "My tray"
  icon_file: "$ICON_DIR/tray.ico"
  items:
    - label: "Say hi"
      action: print
      message: "hi"
    - separator: true
    - label: "Quit"
      action: quit
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "My tray", cfg.Tray.Tooltip)
	assert.Equal(t, "/opt/icons/tray.ico", cfg.Tray.IconFile)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []ItemConfig{
		{Label: "Say hi", Action: ActionPrint, Message: "hi"},
		{Separator: true},
		{Label: "Quit", Action: ActionQuit},
	}, cfg.Tray.Items)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "log:\n  file: \"\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "systray example", cfg.Tray.Tooltip)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultItems(), cfg.Tray.Items)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tray    TrayConfig
		wantErr bool
	}{
		{name: "defaults", tray: TrayConfig{Items: DefaultItems()}},
		{name: "missing label", tray: TrayConfig{Items: []ItemConfig{{Action: ActionQuit}}}, wantErr: true},
		{name: "missing action", tray: TrayConfig{Items: []ItemConfig{{Label: "x"}}}, wantErr: true},
		{name: "unknown action", tray: TrayConfig{Items: []ItemConfig{{Label: "x", Action: "explode"}}}, wantErr: true},
		{name: "separator needs nothing", tray: TrayConfig{Items: []ItemConfig{{Separator: true}}}},
		{name: "submenu needs no action", tray: TrayConfig{Items: []ItemConfig{
			{Label: "More", Items: []ItemConfig{{Label: "x", Action: ActionQuit}}},
		}}},
		{name: "invalid submenu item", tray: TrayConfig{Items: []ItemConfig{
			{Label: "More", Items: []ItemConfig{{Label: "x"}}},
		}}, wantErr: true},
		{name: "two icons", tray: TrayConfig{IconFile: "a.ico", IconResource: "b"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Tray: tt.tray}
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "tray:\n  tooltip: \"before\"\n")

	var (
		mu       sync.Mutex
		tooltips []string
	)
	err := Watch(path, func(cfg *Config, _ fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()
		tooltips = append(tooltips, cfg.Tray.Tooltip)
	}, nil)
	require.NoError(t, err)

	writeConfig(t, dir, "tray:\n  tooltip: \"after\"\n")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(tooltips) > 0 && tooltips[len(tooltips)-1] == "after"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatch_RequiresPath(t *testing.T) {
	assert.Error(t, Watch("", func(*Config, fsnotify.Event) {}, nil))
}
