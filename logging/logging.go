// Package logging contains the leveled, structured logger used throughout monovo.
package logging

import (
	"io"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// DefaultTimeFormatStr is the timestamp layout used by the console and test appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Logger takes key/value structured messages. Per-frame detail goes to Debugw; a frame recovered
// by the failure policy goes to Warnw.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a child named "<name>.<subname>" sharing the parent's outputs. Its level
	// starts at the parent's and changes independently afterwards.
	Sublogger(subname string) Logger
	SetLevel(level Level)
	Sync() error
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(DefaultTimeFormatStr),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewLogger returns a logger writing Info+ to stdout in UTC.
func NewLogger(name string) Logger {
	return NewWriterLogger(name, INFO, os.Stdout)
}

// NewDebugLogger returns a logger writing Debug+ to stdout in UTC.
func NewDebugLogger(name string) Logger {
	return NewWriterLogger(name, DEBUG, os.Stdout)
}

// NewWriterLogger returns a logger writing level+ console lines to w in UTC.
func NewWriterLogger(name string, level Level, w io.Writer) Logger {
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(level),
		inUTC:     true,
		appenders: []Appender{NewWriterAppender(w)},
	}
}

// NewTestLogger returns a Debug+ logger that reports through tb in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also records every entry for assertions.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	observerCore, observedLogs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	logger := &impl{
		level:     NewAtomicLevelAt(DEBUG),
		appenders: []Appender{NewTestAppender(tb), observerCore},
	}
	return logger, observedLogs
}
