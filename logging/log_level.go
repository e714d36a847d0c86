package logging

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// LevelEnvVar selects the log level at startup.
const LevelEnvVar = "INPAINT_LOG_LEVEL"

// ParseLevel parses debug, info, warn/warning or error, case-insensitively.
// ok is false for anything else.
func ParseLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// LevelFromEnv reads LevelEnvVar. It returns nil when the variable is unset
// or invalid so the caller's mode default applies.
func LevelFromEnv() *zapcore.Level {
	level, ok := ParseLevel(os.Getenv(LevelEnvVar))
	if !ok {
		return nil
	}
	return &level
}
