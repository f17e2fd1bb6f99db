package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestComponent_FollowsLaterInit(t *testing.T) {
	log := Component("session")

	var buf bytes.Buffer
	InitWriter(&buf, slog.LevelInfo, false)
	defer Discard()

	log.Info("ready", "fields", 3)
	log.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=session") {
		t.Errorf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "fields=3") {
		t.Errorf("expected fields attribute, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry should be filtered at info level, got %q", out)
	}
}

func TestComponent_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, slog.LevelInfo, true)
	defer Discard()

	Component("store").WithGroup("run").Info("persisted", "id", 7)

	if !strings.Contains(buf.String(), `"run":{"id":7}`) {
		t.Errorf("expected grouped attribute, got %q", buf.String())
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, slog.LevelInfo, false)
	defer Discard()

	ctx := ContextWithRunID(ContextWithSessionID(context.Background(), "s1"), 42)
	WithContext(ctx).Info("done")

	out := buf.String()
	if !strings.Contains(out, "session_id=s1") || !strings.Contains(out, "run_id=42") {
		t.Errorf("expected context attributes, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
