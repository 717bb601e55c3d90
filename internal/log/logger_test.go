package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentTransfer, Handler: slog.NewTextHandler(&buf, nil)})
	l.Info("hello", FieldUserID, "u1")

	out := buf.String()
	if !strings.Contains(out, "component=transfer") {
		t.Errorf("missing component in %q", out)
	}
	if !strings.Contains(out, "user_id=u1") {
		t.Errorf("missing user_id in %q", out)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %+v", l)
	}
}

func TestLogTransferFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Handler: slog.NewTextHandler(&buf, nil)}))
	sl.LogTransfer(context.Background(), "u1", "s1", "b1", 2500, 12500)

	out := buf.String()
	for _, want := range []string{"schedule_id=s1", "bin_id=b1", "amount_cents=2500", "new_total_cents=12500", "component=transfer"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Handler: slog.NewTextHandler(&buf, nil)}))
	r := httptest.NewRequest("GET", "/api/bins", nil)

	sl.LogHTTPEnd(context.Background(), r, 500, 3, "127.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("5xx should log at error: %q", buf.String())
	}
}

func TestWithComponentReplacesParent(t *testing.T) {
	tests := []struct {
		name string
		emit func(l *Logger)
	}{
		{"info", func(l *Logger) { l.Info("hello") }},
		{"warn context", func(l *Logger) { l.WarnContext(context.Background(), "hello") }},
		{"structured transfer", func(l *Logger) {
			NewStructuredLogger(l).LogTransfer(context.Background(), "u1", "s1", "b1", 1, 2)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := New(Config{Component: ComponentApp, Handler: slog.NewTextHandler(&buf, nil)})
			tt.emit(base.WithComponent(ComponentHTTP).With(FieldRequestID, "r1").WithComponent(ComponentTransfer))

			out := buf.String()
			if n := strings.Count(out, "component="); n != 1 {
				t.Errorf("component logged %d times: %q", n, out)
			}
			if !strings.Contains(out, "component=transfer") || !strings.Contains(out, "request_id=r1") {
				t.Errorf("unexpected record %q", out)
			}
		})
	}
}
