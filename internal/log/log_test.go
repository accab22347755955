package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, Config{Level: slog.LevelDebug})

		logger.Debug("hello", "key", "value")

		out := buf.String()
		if !strings.Contains(out, "hello") {
			t.Errorf("output missing message: %q", out)
		}
		if !strings.Contains(out, "key=value") {
			t.Errorf("output missing attribute: %q", out)
		}
	})

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, Config{JSON: true})

		logger.Info("hello")

		if !strings.Contains(buf.String(), `"msg":"hello"`) {
			t.Errorf("expected JSON output, got %q", buf.String())
		}
	})

	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})

		logger.Info("should be filtered")

		if buf.Len() != 0 {
			t.Errorf("info log not filtered at warn level: %q", buf.String())
		}
	})
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	// Must not panic and must discard output.
	logger.Error("discarded")
}
