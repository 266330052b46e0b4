// Package logging contains the zap backed logger shared by the distortion tooling.
package logging

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// DefaultTimeFormatStr is the time format used by every appender in this package.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

var global = struct {
	sync.RWMutex
	logger Logger
}{logger: NewDebugLogger("startup")}

// ReplaceGlobal replaces the global logger.
func ReplaceGlobal(logger Logger) {
	global.Lock()
	defer global.Unlock()
	global.logger = logger
}

// Global returns the global logger.
func Global() Logger {
	global.RLock()
	defer global.RUnlock()
	return global.logger
}

// consoleEncoderConfig mirrors the console appender's layout for loggers obtained through AsZap.
func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(DefaultTimeFormatStr),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewLogger returns a logger writing Info and above to stdout, timestamped in UTC.
func NewLogger(name string) Logger {
	return newImpl(name, INFO, true, NewStdoutAppender())
}

// NewDebugLogger is NewLogger at Debug level.
func NewDebugLogger(name string) Logger {
	return newImpl(name, DEBUG, true, NewStdoutAppender())
}

// NewBlankLogger returns a Debug level logger with no outputs. Appenders may be added later.
func NewBlankLogger(name string) Logger {
	return newImpl(name, DEBUG, true)
}

// NewTestLogger returns a Debug level logger that writes through tb in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is NewTestLogger that also records every entry for assertions.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return newImpl("", DEBUG, false, NewTestAppender(tb), core), logs
}
