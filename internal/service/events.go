// Package service contains application services.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/TourBridge/internal/port/broadcast"
	"github.com/Strob0t/TourBridge/internal/port/messagequeue"
)

// Events publishes committed changes to the message queue and pushes them to
// connected clients. Both sinks are optional.
type Events struct {
	queue messagequeue.Queue
	hub   broadcast.Broadcaster
}

// NewEvents creates an Events fan-out. Either argument may be nil.
func NewEvents(queue messagequeue.Queue, hub broadcast.Broadcaster) *Events {
	return &Events{queue: queue, hub: hub}
}

// publish marshals payload onto subject. A failure is logged and returned as
// a warning for the caller's response.
func (e *Events) publish(ctx context.Context, subject string, payload any) string {
	if e == nil || e.queue == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal event", "subject", subject, "error", err)
		return fmt.Sprintf("event %s not published", subject)
	}
	if err := e.queue.Publish(ctx, subject, data); err != nil {
		slog.WarnContext(ctx, "publish event failed", "subject", subject, "error", err)
		return fmt.Sprintf("event %s not published", subject)
	}
	return ""
}

func (e *Events) broadcast(ctx context.Context, eventType string, payload any, tenantIDs ...int64) {
	if e == nil || e.hub == nil {
		return
	}
	e.hub.BroadcastToTenants(ctx, eventType, payload, tenantIDs...)
}

// warnings collects non-fatal side effect failures.
type warnings []string

func (w *warnings) add(msg string) {
	if msg != "" {
		*w = append(*w, msg)
	}
}
