package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWriter_Format(t *testing.T) {
	t.Parallel()

	var jsonBuf, textBuf bytes.Buffer
	NewWriter(&jsonBuf, "info", "json").Info("hello", slog.String("k", "v"))
	NewWriter(&textBuf, "info", "TEXT").Info("hello", slog.String("k", "v"))

	if !strings.HasPrefix(jsonBuf.String(), "{") {
		t.Errorf("json handler: expected JSON object, got %q", jsonBuf.String())
	}
	if !strings.Contains(textBuf.String(), "k=v") {
		t.Errorf("text handler: expected k=v, got %q", textBuf.String())
	}
}

func TestNewWriter_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriter(&buf, "warn", "text")
	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected slog.Default for empty context")
	}

	l := Discard()
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("expected stored logger")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
