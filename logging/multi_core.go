package logging

import (
	"go.uber.org/zap/zapcore"
)

// NewTeeCore builds a core writing to console and, when file is non-nil,
// to file. The file always receives JSON. The console receives colored
// human-readable lines in development and JSON otherwise.
func NewTeeCore(level zapcore.Level, console, file zapcore.WriteSyncer, dev bool) zapcore.Core {
	var consoleEncoder zapcore.Encoder
	if dev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, console, level)

	if file == nil {
		return consoleCore
	}
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(NewEncoderConfig()), file, level)
	return zapcore.NewTee(consoleCore, fileCore)
}
