package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	Sync() error
}

// ConsoleAppender writes one tab separated line per entry:
// time, level, logger name (if any), caller, message and the fields as JSON.
type ConsoleAppender struct {
	io.Writer
}

// NewStdoutAppender creates a new appender that outputs to stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// NewWriterAppender creates a new appender that outputs to the input writer.
func NewWriterAppender(writer io.Writer) ConsoleAppender {
	return ConsoleAppender{writer}
}

// Write outputs the log entry to the underlying writer.
func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatLine(entry, fields)
	fmt.Fprintln(appender.Writer, line)
	return err
}

// Sync is a no-op.
func (appender ConsoleAppender) Sync() error {
	return nil
}

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that logs through tb, so lines stay attached to the test
// that produced them.
func NewTestAppender(tb testing.TB) Appender {
	return testAppender{tb}
}

func (tapp testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line, err := formatLine(entry, fields)
	tapp.tb.Log(line)
	return err
}

func (tapp testAppender) Sync() error {
	return nil
}

// formatLine renders an entry. On a field encoding error the line is still returned without fields.
func formatLine(entry zapcore.Entry, fields []zapcore.Field) (string, error) {
	parts := []string{entry.Time.Format(DefaultTimeFormatStr), strings.ToUpper(entry.Level.String())}
	if entry.LoggerName != "" {
		parts = append(parts, entry.LoggerName)
	}
	if entry.Caller.Defined {
		dir, file := filepath.Split(entry.Caller.File)
		parts = append(parts, fmt.Sprintf("%s/%s:%d", filepath.Base(dir), file, entry.Caller.Line))
	}
	parts = append(parts, entry.Message)
	if len(fields) > 0 {
		encoded, err := encodeFields(fields)
		if err != nil {
			return strings.Join(parts, "\t"), err
		}
		parts = append(parts, encoded)
	}
	return strings.Join(parts, "\t"), nil
}

// encodeFields encodes fields, in order, as a single JSON object.
func encodeFields(fields []zapcore.Field) (string, error) {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return "", err
	}
	defer buf.Free()
	return buf.String(), nil
}
