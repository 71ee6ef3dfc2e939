// Package logger holds the process-wide zap logger. Console output is
// colored in dev and JSON in prod; when a file path is configured every
// entry is also appended to that file (logs/cityinfo.txt by default).
package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the encoder, minimum level and optional log file.
type Config struct {
	Env         string // "dev" or "prod"
	Level       string // debug | info | warn | error
	File        string // extra output path; empty disables file logging
	ServiceName string
}

var (
	mu       sync.Mutex
	instance *zap.Logger
)

// Init builds the singleton. Only the first call has an effect; use
// Replace in tests that need a specific core.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance = build(cfg)
	}
}

// Replace swaps the singleton and returns a func that restores the
// previous one.
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prev := instance
	instance = l
	mu.Unlock()
	return func() {
		mu.Lock()
		instance = prev
		mu.Unlock()
	}
}

// L returns the singleton, creating a dev logger if Init was never called.
func L() *zap.Logger {
	mu.Lock()
	l := instance
	mu.Unlock()
	if l == nil {
		Init(Config{Env: "dev", Level: "info"})
		return L()
	}
	return l
}

// Named returns a child logger for a component.
func Named(name string) *zap.Logger { return L().Named(name) }

// Sync flushes buffered entries. Call it deferred in main.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return instance.Sync()
	}
	return nil
}

func build(cfg Config) *zap.Logger {
	level := parseLevel(cfg.Level)

	var zcfg zap.Config
	if strings.EqualFold(cfg.Env, "prod") {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err == nil {
			zcfg.OutputPaths = append(zcfg.OutputPaths, cfg.File)
		}
	}

	l, err := zcfg.Build(zap.AddCaller())
	if err != nil {
		l, _ = zap.NewProduction()
	}
	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	return l
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
