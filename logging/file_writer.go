package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults.
const (
	DefaultMaxSizeMB  = 50
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 14
)

// RotationConfig controls lumberjack rotation. Zero fields take defaults.
type RotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// DisableCompression keeps rotated files uncompressed.
	DisableCompression bool
}

func (c RotationConfig) withDefaults() RotationConfig {
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = DefaultMaxSizeMB
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = DefaultMaxBackups
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = DefaultMaxAgeDays
	}
	return c
}

// NewRotatingWriter returns a WriteSyncer backed by lumberjack. The parent
// directory is created if missing.
func NewRotatingWriter(path string, cfg RotationConfig) (zapcore.WriteSyncer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
	}

	cfg = cfg.withDefaults()
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   !cfg.DisableCompression,
	}), nil
}
