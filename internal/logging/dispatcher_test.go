package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/broadside/server/internal/dispatcher"
)

var _ dispatcher.Logger = (*DispatcherLogger)(nil)

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *DispatcherLogger)
		level string
		msg   string
	}{
		{"debug", func(l *DispatcherLogger) { l.Debug("dispatching", "command", "attack", "client", 3) }, "DEBUG", "dispatching"},
		{"info", func(l *DispatcherLogger) { l.Info("handler registered", "command", "attack", "client", 3) }, "INFO", "handler registered"},
		{"error", func(l *DispatcherLogger) { l.Error("handler failed", "command", "attack", "client", 3) }, "ERROR", "handler failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			tt.log(NewDispatcherLogger(logger))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse log output: %v", err)
			}
			if entry["level"] != tt.level {
				t.Errorf("expected level %q, got %v", tt.level, entry["level"])
			}
			if entry["msg"] != tt.msg {
				t.Errorf("expected msg %q, got %v", tt.msg, entry["msg"])
			}
			if entry["command"] != "attack" {
				t.Errorf("expected command='attack', got %v", entry["command"])
			}
			if entry["client"] != float64(3) {
				t.Errorf("expected client=3, got %v", entry["client"])
			}
			if entry["component"] != "dispatcher" {
				t.Errorf("expected component='dispatcher', got %v", entry["component"])
			}
		})
	}
}

func TestDispatcherLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	dl := NewDispatcherLogger(logger)

	dl.Debug("queued")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered, got %q", buf.String())
	}

	dl.Info("processed")
	if buf.Len() == 0 {
		t.Error("expected info to be written")
	}
}
