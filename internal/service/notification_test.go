package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/TourBridge/internal/config"
	"github.com/Strob0t/TourBridge/internal/port/notifier"
	"github.com/Strob0t/TourBridge/internal/resilience"
)

// blockingNotifier holds every Send until release is closed.
type blockingNotifier struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingNotifier) Name() string { return "blocking" }

func (b *blockingNotifier) Send(ctx context.Context, _ notifier.Message) error {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestNotifySkipsEmptyPhone(t *testing.T) {
	n := &mockNotifier{}
	svc := NewNotificationService(n, nil, config.Notifier{}, nil)
	if err := svc.Notify(context.Background(), notifier.Message{Body: "hi", Source: "test"}); err != nil {
		t.Fatal(err)
	}
	if len(n.messages()) != 0 {
		t.Fatal("message without phone must not be sent")
	}
}

func TestNotifyOpensBreaker(t *testing.T) {
	n := &mockNotifier{err: errors.New("503 from provider")}
	svc := NewNotificationService(n, resilience.NewBreaker(2, time.Minute), config.Notifier{}, nil)
	ctx := context.Background()
	msg := notifier.Message{Phone: "+905551112233", Body: "hi", Source: "test"}

	for range 2 {
		if err := svc.Notify(ctx, msg); err == nil {
			t.Fatal("expected provider error")
		}
	}
	if err := svc.Notify(ctx, msg); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if svc.BreakerState() != "open" {
		t.Fatalf("expected open state, got %s", svc.BreakerState())
	}
}

func TestNotifyPermanentErrorKeepsBreakerClosed(t *testing.T) {
	n := &mockNotifier{err: resilience.Permanent(errors.New("invalid phone"))}
	svc := NewNotificationService(n, resilience.NewBreaker(1, time.Minute), config.Notifier{}, nil)
	ctx := context.Background()
	msg := notifier.Message{Phone: "12", Body: "hi", Source: "test"}

	for range 3 {
		if err := svc.Notify(ctx, msg); errors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatal("permanent errors must not open the circuit")
		}
	}
	if svc.BreakerState() != "closed" {
		t.Fatalf("expected closed, got %s", svc.BreakerState())
	}
}

func TestNotifyBoundsInFlight(t *testing.T) {
	b := &blockingNotifier{started: make(chan struct{}, 4), release: make(chan struct{})}
	svc := NewNotificationService(b, nil, config.Notifier{MaxInFlight: 1, Timeout: 5 * time.Second}, nil)
	msg := notifier.Message{Phone: "+905551112233", Body: "hi", Source: "test"}

	first := make(chan error, 1)
	go func() { first <- svc.Notify(context.Background(), msg) }()
	<-b.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := svc.Notify(ctx, msg); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second send must time out waiting for a delivery slot, got %v", err)
	}
	close(b.release)
	if err := <-first; err != nil {
		t.Fatalf("first send: %v", err)
	}
}

func TestNilNotificationService(t *testing.T) {
	var svc *NotificationService
	if err := svc.Notify(context.Background(), notifier.Message{Phone: "1"}); err != nil {
		t.Fatal(err)
	}
	if svc.notifyWarning(context.Background(), notifier.Message{Phone: "1"}) != "" {
		t.Fatal("nil service must not warn")
	}
}
