// Package lognotifier implements a notifier.Notifier that only writes the
// rendered message to the structured log. It is the default for development.
package lognotifier

import (
	"context"
	"log/slog"

	"github.com/Strob0t/TourBridge/internal/port/notifier"
)

const providerName = "log"

// Notifier logs messages instead of delivering them.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a log notifier writing to l, or to slog.Default when l is nil.
func NewNotifier(l *slog.Logger) *Notifier {
	if l == nil {
		l = slog.Default()
	}
	return &Notifier{logger: l}
}

func (n *Notifier) Name() string { return providerName }

// Send logs msg. The phone number is masked to its last four digits.
func (n *Notifier) Send(ctx context.Context, msg notifier.Message) error {
	n.logger.InfoContext(ctx, "notification",
		"to", mask(msg.Phone),
		"source", msg.Source,
		"body", msg.Body,
	)
	return nil
}

func mask(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}

func init() {
	notifier.Register(providerName, func(map[string]string) (notifier.Notifier, error) {
		return NewNotifier(nil), nil
	})
}
