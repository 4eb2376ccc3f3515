package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	tbotel "github.com/Strob0t/TourBridge/internal/adapter/otel"
	"github.com/Strob0t/TourBridge/internal/config"
	"github.com/Strob0t/TourBridge/internal/port/notifier"
	"github.com/Strob0t/TourBridge/internal/resilience"
)

// NotificationService delivers phone messages through one provider. Calls are
// bounded by a weighted semaphore and guarded by a circuit breaker so a
// failing provider cannot stall the request path.
type NotificationService struct {
	provider notifier.Notifier
	breaker  *resilience.Breaker
	sem      *semaphore.Weighted
	timeout  time.Duration
	metrics  *tbotel.Metrics
}

// NewNotificationService creates a NotificationService. breaker and metrics may be nil.
func NewNotificationService(provider notifier.Notifier, breaker *resilience.Breaker, cfg config.Notifier, metrics *tbotel.Metrics) *NotificationService {
	inFlight := cfg.MaxInFlight
	if inFlight < 1 {
		inFlight = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if breaker == nil {
		breaker = resilience.NewBreaker(5, 30*time.Second)
	}
	return &NotificationService{
		provider: provider,
		breaker:  breaker,
		sem:      semaphore.NewWeighted(inFlight),
		timeout:  timeout,
		metrics:  metrics,
	}
}

// Notify sends msg and waits for the outcome. Messages without a phone
// number are skipped.
func (s *NotificationService) Notify(ctx context.Context, msg notifier.Message) error {
	if s == nil || s.provider == nil {
		return nil
	}
	if msg.Phone == "" {
		slog.DebugContext(ctx, "notification skipped, no phone", "source", msg.Source)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.metrics.RecordNotification(ctx, s.provider.Name(), err)
		return fmt.Errorf("notify %s: no delivery slot: %w", msg.Source, err)
	}
	defer s.sem.Release(1)

	ctx, span := tbotel.StartNotifySpan(ctx, s.provider.Name())
	err := s.breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		return s.provider.Send(ctx, msg)
	})
	tbotel.End(span, err)
	s.metrics.RecordNotification(ctx, s.provider.Name(), err)

	if err != nil {
		slog.WarnContext(ctx, "notification send failed",
			"provider", s.provider.Name(),
			"source", msg.Source,
			"error", err,
		)
		return fmt.Errorf("notify %s via %s: %w", msg.Source, s.provider.Name(), err)
	}
	slog.DebugContext(ctx, "notification sent", "provider", s.provider.Name(), "source", msg.Source)
	return nil
}

// Provider returns the configured provider name.
func (s *NotificationService) Provider() string {
	if s == nil || s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// BreakerState reports the circuit state for health output.
func (s *NotificationService) BreakerState() string {
	if s == nil {
		return ""
	}
	return s.breaker.State()
}

// notifyWarning delivers msg and converts a failure into a response warning.
func (s *NotificationService) notifyWarning(ctx context.Context, msg notifier.Message) string {
	if err := s.Notify(ctx, msg); err != nil {
		return fmt.Sprintf("notification %s not delivered", msg.Source)
	}
	return ""
}
