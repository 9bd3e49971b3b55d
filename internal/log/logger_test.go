package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentLedger, Output: &buf})

	logger.Info("loaded", FieldCount, 3)
	logger.Debug("hidden")
	if out := buf.String(); !strings.Contains(out, "component=ledger") || !strings.Contains(out, "count=3") {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug line written at info level")
	}

	buf.Reset()
	worker := logger.WithComponent(ComponentWorker)
	worker.Info("tick")
	if out := buf.String(); strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=worker") {
		t.Errorf("unexpected output %q", out)
	}
	if worker.Component() != ComponentWorker {
		t.Errorf("Component() = %q", worker.Component())
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentRecurring).
		WithOperation(OpProcess).
		WithCount(2).
		WithError(errors.New("boom")).
		WithError(nil)

	if fields[FieldError] != "boom" || fields[FieldCount] != 2 {
		t.Errorf("fields = %v", fields)
	}
	if got := len(fields.ToSlice()); got != 8 {
		t.Errorf("ToSlice() len = %d, want 8", got)
	}
}
