package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Menu item actions understood by the example program.
const (
	ActionPrint   = "print"
	ActionAddItem = "add-item"
	ActionTooltip = "tooltip"
	ActionQuit    = "quit"
)

// Config represents the example program configuration
type Config struct {
	Tray TrayConfig `mapstructure:"tray"`
	Log  LogConfig  `mapstructure:"log"`
}

// TrayConfig describes the icon and its menu
type TrayConfig struct {
	Tooltip      string       `mapstructure:"tooltip"`
	IconFile     string       `mapstructure:"icon_file"`
	IconResource string       `mapstructure:"icon_resource"`
	Items        []ItemConfig `mapstructure:"items"`
}

// ItemConfig is one menu entry. Separator entries ignore every other field;
// entries with Items open a submenu and take no action.
type ItemConfig struct {
	Label     string       `mapstructure:"label"`
	Action    string       `mapstructure:"action"`
	Message   string       `mapstructure:"message"`
	Separator bool         `mapstructure:"separator"`
	Items     []ItemConfig `mapstructure:"items"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultItems is the menu used when the configuration lists none.
func DefaultItems() []ItemConfig {
	return []ItemConfig{
		{Label: "Print a thing", Action: ActionPrint, Message: "Printing a thing!"},
		{Label: "Add Menu Item", Action: ActionAddItem},
		{Separator: true},
		{Label: "Quit", Action: ActionQuit},
	}
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.systray-example")
	}

	v.SetDefault("tray.tooltip", "systray example")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("SYSTRAY")
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(config.Tray.Items) == 0 {
		config.Tray.Items = DefaultItems()
	}
	config.ExpandEnvVars()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// Load loads configuration from file. Without an explicit path a missing
// file is not an error and the defaults are returned.
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return decode(v)
}

// Watch reads the configuration file and calls onChange with the new
// configuration every time the file is written. Reloads that fail to
// decode are reported to onError and otherwise ignored.
func Watch(configPath string, onChange func(*Config, fsnotify.Event), onError func(error)) error {
	if configPath == "" {
		return fmt.Errorf("config path is required for watching")
	}

	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		config, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(config, e)
	})
	v.WatchConfig()
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validateItems("tray.items", c.Tray.Items); err != nil {
		return err
	}

	if c.Tray.IconFile != "" && c.Tray.IconResource != "" {
		return fmt.Errorf("tray.icon_file and tray.icon_resource are mutually exclusive")
	}
	return nil
}

func validateItems(path string, items []ItemConfig) error {
	for i, item := range items {
		if item.Separator {
			continue
		}
		if item.Label == "" {
			return fmt.Errorf("%s[%d].label is required", path, i)
		}
		if len(item.Items) > 0 {
			if err := validateItems(fmt.Sprintf("%s[%d].items", path, i), item.Items); err != nil {
				return err
			}
			continue
		}
		switch item.Action {
		case ActionPrint, ActionAddItem, ActionTooltip, ActionQuit:
		case "":
			return fmt.Errorf("%s[%d].action is required", path, i)
		default:
			return fmt.Errorf("%s[%d].action must be one of print, add-item, tooltip, quit, got '%s'", path, i, item.Action)
		}
	}
	return nil
}

// ExpandEnvVars expands environment variables in paths
func (c *Config) ExpandEnvVars() {
	c.Tray.IconFile = os.ExpandEnv(c.Tray.IconFile)
	c.Log.File = os.ExpandEnv(c.Log.File)
}
