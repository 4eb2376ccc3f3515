package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Strob0t/TourBridge/internal/port/notifier"
	"github.com/Strob0t/TourBridge/internal/resilience"
)

// Compile-time interface check.
var _ notifier.Notifier = (*Notifier)(nil)

func TestNotifierName(t *testing.T) {
	n := NewNotifier("", "", "")
	if n.Name() != "whatsapp" {
		t.Fatalf("expected 'whatsapp', got %q", n.Name())
	}
}

func TestSendNotConfigured(t *testing.T) {
	n := NewNotifier("", "", "")
	err := n.Send(context.Background(), notifier.Message{Phone: "+905551112233", Body: "hi"})
	if !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendSuccess(t *testing.T) {
	var got textMessage
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "1234", "secret")
	err := n.Send(context.Background(), notifier.Message{
		Phone:  "+90 (555) 111-22-33",
		Body:   "Your balloon flight on 2026-06-01 06:00 is confirmed.",
		Source: "request.converted",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/1234/messages" {
		t.Fatalf("unexpected path %q", path)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if got.To != "905551112233" || got.Type != "text" || got.MessagingProduct != "whatsapp" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestUseTokenSource(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	current := "first"
	n := NewNotifier(srv.URL, "1234", "")
	n.UseTokenSource(func() string { return current })

	msg := notifier.Message{Phone: "905551112233", Body: "x"}
	if err := n.Send(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer first" {
		t.Fatalf("unexpected auth header %q", auth)
	}

	current = "rotated"
	if err := n.Send(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer rotated" {
		t.Fatalf("expected rotated token, got %q", auth)
	}

	current = ""
	if err := n.Send(context.Background(), msg); !errors.Is(err, notifier.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured once the token is gone, got %v", err)
	}
}

func TestSendErrorsClassified(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		permanent bool
	}{
		{"bad request", http.StatusBadRequest, true},
		{"rate limited", http.StatusTooManyRequests, false},
		{"server error", http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewNotifier(srv.URL, "1", "t").Send(context.Background(), notifier.Message{Phone: "905551112233", Body: "x"})
			if err == nil {
				t.Fatal("expected error")
			}
			if resilience.IsPermanent(err) != tt.permanent {
				t.Fatalf("expected permanent=%v, got %v", tt.permanent, err)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"+90 555 111 22 33": "905551112233",
		"0090-555-111-2233": "905551112233",
		"12345":             "",
		"":                  "",
	}
	for in, want := range tests {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInvalidPhoneIsPermanent(t *testing.T) {
	n := NewNotifier("http://unused", "1", "t")
	err := n.Send(context.Background(), notifier.Message{Phone: "abc", Body: "x"})
	if !resilience.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Göreme", 10); got != "Göreme" {
		t.Fatalf("unexpected %q", got)
	}
	if got := truncate("Göreme", 4); got != "Gör…" {
		t.Fatalf("unexpected %q", got)
	}
}
