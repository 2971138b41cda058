package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap/zapcore"
)

// Appender is an output for log entries. A zapcore.Core satisfies it, which is how the test
// observer gets hooked in.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

// ConsoleAppender writes tab delimited log lines to an io.Writer.
type ConsoleAppender struct {
	mu      sync.Mutex
	writer  io.Writer
	encoder zapcore.Encoder
}

// NewWriterAppender creates a console appender writing to the given writer.
func NewWriterAppender(writer io.Writer) *ConsoleAppender {
	return &ConsoleAppender{
		writer:  writer,
		encoder: zapcore.NewConsoleEncoder(consoleEncoderConfig()),
	}
}

// Write encodes the entry and its fields on one line.
func (appender *ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := appender.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()

	appender.mu.Lock()
	defer appender.mu.Unlock()
	_, err = appender.writer.Write(buf.Bytes())
	return err
}

// Sync syncs the writer when it supports it.
func (appender *ConsoleAppender) Sync() error {
	if syncer, ok := appender.writer.(interface{ Sync() error }); ok {
		// stdout on some platforms refuses fsync; that is not worth reporting.
		if appender.writer == os.Stdout {
			//nolint:errcheck
			syncer.Sync()
			return nil
		}
		return syncer.Sync()
	}
	return nil
}
