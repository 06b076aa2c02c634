package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/username/systray/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want zapcore.Level
	}{
		{name: "debug", want: zapcore.DebugLevel},
		{name: "warn", want: zapcore.WarnLevel},
		{name: "ERROR", want: zapcore.ErrorLevel},
		{name: "", want: zapcore.InfoLevel},
		{name: "loud", want: zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.name))
		})
	}
}

func TestNewLogger_ConsoleHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", zap.String("key", "value"))
	require.NoError(t, logger.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"timestamp"`)
}

func TestNewLogger_File(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "tray.log")
	logger := newLogger(config.LogConfig{File: path, Level: "debug"}, &console)

	logger.Debug("to file")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
	assert.Empty(t, console.String())
}
