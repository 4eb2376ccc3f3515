package lognotifier

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/Strob0t/TourBridge/internal/port/notifier"
)

func TestSendLogsMaskedPhone(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	err := n.Send(context.Background(), notifier.Message{Phone: "+905551112233", Body: "approved", Source: "request.approved"})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "905551112233") {
		t.Fatalf("phone must be masked, got %s", out)
	}
	if !strings.Contains(out, "****2233") || !strings.Contains(out, "request.approved") {
		t.Fatalf("unexpected log line %s", out)
	}
}

func TestRegistered(t *testing.T) {
	n, err := notifier.New("log", nil)
	if err != nil {
		t.Fatal(err)
	}
	if n.Name() != "log" {
		t.Fatalf("expected log notifier, got %s", n.Name())
	}
}
