package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Strob0t/TourBridge/internal/domain/fulfillment"
	"github.com/Strob0t/TourBridge/internal/port/messagequeue"
)

// Importer consumes bookings and dispatch records that other systems publish
// on the queue. Handler errors are retried by the queue and end up in the
// dead-letter subject after the last attempt.
type Importer struct {
	queue        messagequeue.Queue
	reservations *ReservationService
	fulfillment  *FulfillmentService
	cancels      []func()
}

// NewImporter creates a new Importer.
func NewImporter(queue messagequeue.Queue, reservations *ReservationService, fulfillment *FulfillmentService) *Importer {
	return &Importer{queue: queue, reservations: reservations, fulfillment: fulfillment}
}

// Start subscribes to the import subjects.
func (i *Importer) Start(ctx context.Context) error {
	subs := []struct {
		subject string
		handler messagequeue.Handler
	}{
		{messagequeue.SubjectReservationImported, i.handleReservation},
		{messagequeue.SubjectDispatchRecorded, i.handleDispatch},
	}
	for _, sub := range subs {
		cancel, err := i.queue.Subscribe(ctx, sub.subject, sub.handler)
		if err != nil {
			i.Stop()
			return fmt.Errorf("subscribe %s: %w", sub.subject, err)
		}
		i.cancels = append(i.cancels, cancel)
	}
	return nil
}

// Stop cancels all subscriptions.
func (i *Importer) Stop() {
	for _, cancel := range i.cancels {
		cancel()
	}
	i.cancels = nil
}

func (i *Importer) handleReservation(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.ReservationImportedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode reservation import: %w", err)
	}
	res, err := i.reservations.Import(ctx, p)
	if err != nil {
		return fmt.Errorf("import %s for tenant %d: %w", p.ExternalRef, p.TenantID, err)
	}
	slog.DebugContext(ctx, "reservation imported", "external_ref", p.ExternalRef, "reservation_id", res.ID)
	return nil
}

func (i *Importer) handleDispatch(ctx context.Context, _ string, data []byte) error {
	var p messagequeue.DispatchRecordedPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode dispatch record: %w", err)
	}
	_, err := i.fulfillment.RecordDispatch(ctx, p.TenantID, fulfillment.CreateDispatchRequest{
		ReservationID: p.ReservationID,
		ActivityID:    p.ActivityID,
		Date:          p.Date,
		CustomerName:  p.CustomerName,
		Note:          p.Note,
	})
	if err != nil {
		return fmt.Errorf("record dispatch for tenant %d: %w", p.TenantID, err)
	}
	return nil
}
