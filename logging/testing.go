package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb      testing.TB
	encoder zapcore.Encoder
}

// NewTestAppender returns an appender that reports each entry through tb.Log, so output is
// attributed to the test that produced it.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb: tb, encoder: zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})}
}

// Write logs one tab separated line: time, level, name, caller, message and the fields as JSON.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	parts := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
	}
	if entry.Caller.Defined {
		parts = append(parts, entry.Caller.TrimmedPath())
	}
	parts = append(parts, entry.Message)

	var err error
	if len(fields) > 0 {
		// an empty entry makes the encoder emit only the fields, in order
		buf, encErr := tapp.encoder.EncodeEntry(zapcore.Entry{}, fields)
		if encErr == nil {
			parts = append(parts, buf.String())
			buf.Free()
		}
		err = encErr
	}
	tapp.tb.Log(strings.Join(parts, "\t"))
	return err
}

// Sync is a no-op.
func (tapp *testAppender) Sync() error {
	return nil
}
