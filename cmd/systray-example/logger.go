package main

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/username/systray/internal/config"
)

// parseLevel maps a configured level name, falling back to info.
func parseLevel(name string) zapcore.Level {
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// newLogger writes JSON lines at the configured level, to a rotated file
// when one is set and to console otherwise.
func newLogger(cfg config.LogConfig, console io.Writer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	out := zapcore.AddSync(console)
	if cfg.File != "" {
		out = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(out),
		zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
	)
	return zap.New(core, zap.AddCaller())
}
