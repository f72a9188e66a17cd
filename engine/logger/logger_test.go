package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHandlerFormatSelection(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, "info", "json", false))
	log.Info("hello", "entity", 7)

	line := buf.String()
	if !strings.HasPrefix(line, "{") || !strings.Contains(line, `"entity":7`) {
		t.Fatalf("expected a JSON record, got %q", line)
	}

	buf.Reset()
	log = slog.New(newHandler(&buf, "info", "text", false))
	log.Info("hello", "entity", 7)
	if strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected a text record, got %q", buf.String())
	}
}

func TestHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, "warn", "text", false))

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %q", buf.String())
	}
	log.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("warn must pass at warn level")
	}
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := &Logger{logger: slog.New(newHandler(&buf, "info", "text", false))}

	child := base.With("entity", 42)
	child.Info("scoped")

	if !strings.Contains(buf.String(), "entity=42") {
		t.Fatalf("expected the child field in output, got %q", buf.String())
	}
}
