package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("pipeline", INFO, &buf)

	logger.Debugw("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Infow("frame scored", "frame", 3, "percent", 12.5)
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	parts := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	test.That(t, len(parts), test.ShouldEqual, 6)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "pipeline")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "frame scored")
	test.That(t, parts[5], test.ShouldEqual, `{"frame": 3, "percent": 12.5}`)

	logger.Warnw("low support", "count", 2)
	line, err = buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	test.That(t, line, test.ShouldContainSubstring, "WARN")
	test.That(t, line, test.ShouldContainSubstring, "low support")
}

func TestSublogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("monovo", DEBUG, &buf)
	sub := logger.Sublogger("transform")
	sub.Debugw("decomposed")
	test.That(t, buf.String(), test.ShouldContainSubstring, "monovo.transform")

	sub.SetLevel(ERROR)
	buf.Reset()
	sub.Warnw("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	logger.Warnw("kept")
	test.That(t, buf.String(), test.ShouldContainSubstring, "kept")
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestUnpairedKey(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Infow("odd", "lonely")
	entries := observed.All()
	test.That(t, len(entries), test.ShouldEqual, 1)
	test.That(t, entries[0].ContextMap()["lonely"], test.ShouldEqual, "unpaired log key")
}

func TestObservedLevels(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Debugw("a")
	logger.Warnw("b", "frame", 1)
	logger.Errorw("c", "error", "d")

	test.That(t, observed.Len(), test.ShouldEqual, 3)
	test.That(t, observed.FilterLevelExact(zapcore.WarnLevel).Len(), test.ShouldEqual, 1)
	test.That(t, observed.FilterLevelExact(zapcore.ErrorLevel).Len(), test.ShouldEqual, 1)

	logger.SetLevel(WARN)
	logger.Infow("muted")
	test.That(t, observed.FilterMessage("muted").Len(), test.ShouldEqual, 0)
}

func TestLevelFromJSON(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{`"debug"`, DEBUG},
		{`"INFO"`, INFO},
		{`"warning"`, WARN},
		{`"Error"`, ERROR},
	} {
		var level Level
		test.That(t, json.Unmarshal([]byte(tc.in), &level), test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	var level Level
	err := json.Unmarshal([]byte(`"loud"`), &level)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown log level "loud"`)
	test.That(t, json.Unmarshal([]byte(`3`), &level), test.ShouldNotBeNil)
	test.That(t, WARN.String(), test.ShouldEqual, "Warn")
	test.That(t, Level(9).String(), test.ShouldEqual, "Level(9)")
}
