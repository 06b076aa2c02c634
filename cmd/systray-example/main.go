package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/username/systray/internal/config"
	"github.com/username/systray/pkg/systray"
)

var (
	configPath string
	logger     *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "systray-example",
		Short: "Tray icon demo",
		Long:  "Shows a tray icon whose menu is described by a YAML file and reloads its appearance when the file changes",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Logging settings come from the same file; run reports load errors.
			var logCfg config.LogConfig
			if cfg, err := config.Load(configPath); err == nil {
				logCfg = cfg.Log
			}
			logger = newLogger(logCfg, os.Stderr)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := systray.New(
		systray.WithLogger(logger),
		systray.WithAppID("systray-example"),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("Failed to remove tray icon", zap.Error(err))
		}
	}()

	m := newMenu(app, logger, os.Stdout)
	if err := m.build(cfg.Tray.Items); err != nil {
		return err
	}
	m.applyAppearance(cfg.Tray)

	if configPath != "" {
		err := config.Watch(configPath,
			func(cfg *config.Config, e fsnotify.Event) {
				logger.Info("Config changed, reloading appearance", zap.String("file", e.Name))
				m.applyAppearance(cfg.Tray)
			},
			func(err error) {
				logger.Warn("Ignoring invalid config change", zap.Error(err))
			})
		if err != nil {
			logger.Warn("Config reload disabled", zap.Error(err))
		}
	}

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		logger.Info("Received signal, quitting", zap.String("signal", sig.String()))
		app.Quit()
	}()

	logger.Info("Tray started", zap.Int("items", len(cfg.Tray.Items)))
	err = app.WaitForMessage()

	var cbErr *systray.CallbackError
	if errors.As(err, &cbErr) {
		logger.Error("Menu action failed", zap.Uint32("menu_id", uint32(cbErr.ID)), zap.Error(cbErr.Err))
	}
	logger.Info("Tray stopped")
	return err
}
