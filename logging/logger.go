// Package logging wraps zap with console and rotating file output and
// redaction of credentials in structured fields.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Development selects colored console output and debug level.
	Development bool

	// FilePath receives JSON logs with rotation. Empty disables the file.
	FilePath string

	// Level overrides the level implied by Development.
	Level *zapcore.Level

	// Rotation tunes the file writer. The zero value uses defaults.
	Rotation RotationConfig
}

// Logger is a zap.Logger that redacts sensitive fields before writing.
//
// Example:
//
//	logger, err := logging.New(logging.Options{Development: true, FilePath: "inpaint.log"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	logger.Info("pipeline loaded", zap.String("model", "kandinsky2.2"))
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
	dev   bool
}

// New builds a Logger writing to stdout and, if configured, to a rotating
// file.
func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Development {
		level = zapcore.DebugLevel
	}
	if opts.Level != nil {
		level = *opts.Level
	}

	var file zapcore.WriteSyncer
	if opts.FilePath != "" {
		w, err := NewRotatingWriter(opts.FilePath, opts.Rotation)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = w
	}

	core := NewTeeCore(level, zapcore.Lock(os.Stdout), file, opts.Development)
	l := NewWithCore(core)
	l.dev = opts.Development
	return l, nil
}

// NewWithCore wraps an existing core. Tests pass an observer core here.
func NewWithCore(core zapcore.Core) *Logger {
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{zap: z, sugar: z.Sugar()}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	z := zap.NewNop()
	return &Logger{zap: z, sugar: z.Sugar()}
}

// OrNop returns l, or a no-op Logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, redactFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, redactFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, redactFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, redactFields(fields)...)
}

// Infow logs loosely typed key-value pairs at info level.
func (l *Logger) Infow(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, redactKeysAndValues(keysAndValues)...)
}

// Debugw logs loosely typed key-value pairs at debug level.
func (l *Logger) Debugw(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, redactKeysAndValues(keysAndValues)...)
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	z := l.zap.With(redactFields(fields)...)
	return &Logger{zap: z, sugar: z.Sugar(), dev: l.dev}
}

// Named returns a child logger with a name segment appended.
func (l *Logger) Named(name string) *Logger {
	z := l.zap.Named(name)
	return &Logger{zap: z, sugar: z.Sugar(), dev: l.dev}
}

// Zap exposes the underlying zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment reports whether the logger was built in development mode.
func (l *Logger) IsDevelopment() bool {
	return l.dev
}

func redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = redactField(f)
	}
	return out
}

func redactField(f zap.Field) zap.Field {
	if IsSensitiveField(f.Key) {
		return zap.String(f.Key, RedactedPlaceholder)
	}
	if f.Type == zapcore.StringType {
		if redacted := RedactSensitiveData(f.String); redacted != f.String {
			return zap.String(f.Key, redacted)
		}
	}
	return f
}

func redactKeysAndValues(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	out := make([]any, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		if IsSensitiveField(key) {
			out[i+1] = RedactedPlaceholder
			continue
		}
		if s, ok := out[i+1].(string); ok {
			out[i+1] = RedactSensitiveData(s)
		}
	}
	return out
}
