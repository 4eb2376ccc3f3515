package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/Strob0t/TourBridge/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc"}
	l, closer := New(cfg)
	defer closer.Close()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewAsync(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc", Async: true}
	l, closer := New(cfg)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	closer.Close()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	// Empty context returns empty string
	if got := RequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	// Set and retrieve
	ctx = WithRequestID(ctx, "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
}

func TestContextHandlerAddsCorrelation(t *testing.T) {
	inner := &recordingHandler{}
	l := slog.New(&contextHandler{inner: inner})

	ctx := WithTenantID(WithRequestID(context.Background(), "req-9"), 42)
	l.InfoContext(ctx, "request approved")
	l.Info("no context")

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if len(inner.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(inner.records))
	}
	got := map[string]string{}
	inner.records[0].Attrs(func(a slog.Attr) bool {
		got[a.Key] = a.Value.String()
		return true
	})
	if got["request_id"] != "req-9" || got["tenant_id"] != "42" {
		t.Fatalf("unexpected attrs %v", got)
	}
	if inner.records[1].NumAttrs() != 0 {
		t.Fatalf("expected no attrs without context, got %d", inner.records[1].NumAttrs())
	}
}

func TestTenantIDContext(t *testing.T) {
	if _, ok := TenantID(context.Background()); ok {
		t.Fatal("expected no tenant on empty context")
	}
	id, ok := TenantID(WithTenantID(context.Background(), 7))
	if !ok || id != 7 {
		t.Fatalf("expected tenant 7, got %d (%v)", id, ok)
	}
}
