package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: slog.LevelDebug, Component: component, Output: &buf}), &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerComponent(t *testing.T) {
	logger, buf := newBufferLogger(ComponentDashboard)
	logger.Info("hello")
	if !strings.Contains(buf.String(), "component=dashboard") {
		t.Errorf("missing component: %s", buf.String())
	}

	buf.Reset()
	logger.WithComponent(ComponentAuth).Info("sub")
	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=auth") {
		t.Errorf("sub-component should replace the parent: %s", out)
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{422, "level=WARN"},
		{500, "level=ERROR"},
	}
	for _, tt := range tests {
		logger, buf := newBufferLogger(ComponentHTTP)
		sl := NewStructuredLogger(logger)
		r := httptest.NewRequest("POST", "/payments", nil)
		sl.LogHTTPEnd(context.Background(), r, "req-1", tt.status, 12, "10.0.0.1")

		out := buf.String()
		if !strings.Contains(out, tt.level) {
			t.Errorf("status %d: want %s in %s", tt.status, tt.level, out)
		}
		if !strings.Contains(out, "request_id=req-1") || !strings.Contains(out, "path=/payments") {
			t.Errorf("missing request fields: %s", out)
		}
	}
}

func TestLogPaymentRecordedAndError(t *testing.T) {
	logger, buf := newBufferLogger(ComponentPayment)
	sl := NewStructuredLogger(logger)

	sl.LogPaymentRecorded(context.Background(), "D001", "rec-1", 5000, 15000, "mem:4")
	out := buf.String()
	for _, want := range []string{"driver_id=D001", "amount_cents=5000", "remaining_balance_cents=15000", "store_ref=mem:4"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}

	buf.Reset()
	sl.LogError(context.Background(), "store failed", errors.New("disk full"), OpAppend, nil)
	if !strings.Contains(buf.String(), `error="disk full"`) {
		t.Errorf("missing error field: %s", buf.String())
	}
}

func TestLogLoginOmitsPassword(t *testing.T) {
	logger, buf := newBufferLogger(ComponentAuth)
	NewStructuredLogger(logger).LogLogin(context.Background(), "admin", "10.0.0.1", false)
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "username=admin") {
		t.Errorf("unexpected login log: %s", out)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Errorf("unexpected fallback logger: %+v", l)
	}
}
