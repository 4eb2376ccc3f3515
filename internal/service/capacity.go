package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tbotel "github.com/Strob0t/TourBridge/internal/adapter/otel"
	"github.com/Strob0t/TourBridge/internal/adapter/ws"
	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/capacity"
	"github.com/Strob0t/TourBridge/internal/port/database"
)

// CapacityService owns per-slot totals. Booked counts are never written here;
// they follow from reservation and request status.
type CapacityService struct {
	store   database.Store
	events  *Events
	metrics *tbotel.Metrics
}

// NewCapacityService creates a new CapacityService.
func NewCapacityService(store database.Store, events *Events, metrics *tbotel.Metrics) *CapacityService {
	return &CapacityService{store: store, events: events, metrics: metrics}
}

// SetTotal sets the total places of a slot owned by tenantID. Shrinking below
// what is already booked fails with a capacity error.
func (s *CapacityService) SetTotal(ctx context.Context, tenantID, activityID int64, date, slotTime string, total int) (*capacity.View, error) {
	key := capacity.Key{TenantID: tenantID, ActivityID: activityID, Date: date, Time: slotTime}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if _, err := ownedActivity(ctx, s.store, tenantID, activityID); err != nil {
		return nil, err
	}

	var view capacity.View
	err := inSlot(ctx, s.store, s.metrics, key, "set_total", func(tx database.SlotTx) error {
		slot := tx.Slot()
		if err := slot.Resize(total); err != nil {
			return err
		}
		if err := tx.SetTotal(ctx, total); err != nil {
			return err
		}
		view = slot.ToView()
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			s.metrics.RecordCapacityRejection(ctx, "set_total")
		}
		return nil, err
	}

	slog.InfoContext(ctx, "slot capacity set", "slot", key.String(), "total", total)
	s.events.broadcast(ctx, ws.EventSlotChanged, ws.SlotChangedEvent{
		ActivityID: activityID, Date: date, Time: slotTime, AvailableSlots: view.AvailableSlots,
	}, tenantID)
	return &view, nil
}

// Get returns one slot. An untouched slot reports the activity default.
func (s *CapacityService) Get(ctx context.Context, tenantID, activityID int64, date, slotTime string) (*capacity.View, error) {
	key := capacity.Key{TenantID: tenantID, ActivityID: activityID, Date: date, Time: slotTime}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	slot, err := currentSlot(ctx, s.store, key)
	if err != nil {
		return nil, err
	}
	v := slot.ToView()
	return &v, nil
}

// List returns the materialised slots of an activity in [from, to].
func (s *CapacityService) List(ctx context.Context, tenantID, activityID int64, from, to string) ([]capacity.View, error) {
	if err := capacity.ValidateRange(from, to); err != nil {
		return nil, err
	}
	if _, err := ownedActivity(ctx, s.store, tenantID, activityID); err != nil {
		return nil, err
	}
	slots, err := s.store.ListSlots(ctx, tenantID, activityID, from, to)
	if err != nil {
		return nil, err
	}
	return views(slots), nil
}

// currentSlot reads a slot without locking it, falling back to the activity's
// default capacity when the row does not exist yet.
func currentSlot(ctx context.Context, store database.Store, key capacity.Key) (capacity.Slot, error) {
	slots, err := store.ListSlots(ctx, key.TenantID, key.ActivityID, key.Date, key.Date)
	if err != nil {
		return capacity.Slot{}, err
	}
	for _, sl := range slots {
		if sl.Time == key.Time {
			return sl, nil
		}
	}
	a, err := ownedActivity(ctx, store, key.TenantID, key.ActivityID)
	if err != nil {
		return capacity.Slot{}, err
	}
	return capacity.Slot{Key: key, TotalSlots: a.DefaultCapacity}, nil
}

// inSlot runs fn inside the slot lock and records how long it was held.
func inSlot(ctx context.Context, store database.Store, metrics *tbotel.Metrics, key capacity.Key, op string, fn func(tx database.SlotTx) error) error {
	ctx, span := tbotel.StartSlotSpan(ctx, key.String())
	start := time.Now()
	err := store.InSlotTx(ctx, key, fn)
	metrics.ObserveSlotTx(ctx, time.Since(start).Seconds(), op)
	tbotel.End(span, err)
	return err
}

func views(slots []capacity.Slot) []capacity.View {
	out := make([]capacity.View, 0, len(slots))
	for _, sl := range slots {
		out = append(out, sl.ToView())
	}
	return out
}
