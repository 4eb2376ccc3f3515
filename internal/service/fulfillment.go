package service

import (
	"context"
	"fmt"
	"log/slog"

	tbotel "github.com/Strob0t/TourBridge/internal/adapter/otel"
	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/capacity"
	"github.com/Strob0t/TourBridge/internal/domain/fulfillment"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
	"github.com/Strob0t/TourBridge/internal/port/database"
)

// FulfillmentService records dispatch records and reconciles them against
// reservations.
type FulfillmentService struct {
	store    database.Store
	fallback fulfillment.Strictness
	metrics  *tbotel.Metrics
}

// NewFulfillmentService creates a new FulfillmentService. defaultStrictness
// applies when a caller does not pick one.
func NewFulfillmentService(store database.Store, defaultStrictness string, metrics *tbotel.Metrics) (*FulfillmentService, error) {
	st, err := fulfillment.ParseStrictness(defaultStrictness)
	if err != nil {
		return nil, err
	}
	return &FulfillmentService{store: store, fallback: st, metrics: metrics}, nil
}

// RecordDispatch stores a dispatch record for tenantID. A reservation
// reference must point at one of tenantID's reservations.
func (s *FulfillmentService) RecordDispatch(ctx context.Context, tenantID int64, req fulfillment.CreateDispatchRequest) (*fulfillment.DispatchRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ReservationID != nil {
		res, err := s.store.GetReservation(ctx, *req.ReservationID)
		if err != nil {
			return nil, err
		}
		if res.TenantID != tenantID {
			return nil, fmt.Errorf("reservation %d: %w", *req.ReservationID, domain.ErrNotFound)
		}
	}
	d := &fulfillment.DispatchRecord{
		TenantID:      tenantID,
		ReservationID: req.ReservationID,
		ActivityID:    req.ActivityID,
		Date:          req.Date,
		CustomerName:  req.CustomerName,
		Note:          req.Note,
	}
	if err := s.store.CreateDispatch(ctx, d); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "dispatch recorded", "dispatch_id", d.ID, "date", d.Date)
	return d, nil
}

// ListDispatches returns tenantID's dispatch records of one day.
func (s *FulfillmentService) ListDispatches(ctx context.Context, tenantID int64, date string) ([]fulfillment.DispatchRecord, error) {
	if err := capacity.ValidateDate(date); err != nil {
		return nil, err
	}
	return s.store.ListDispatches(ctx, tenantID, date)
}

// Status reports whether one reservation has been fulfilled.
func (s *FulfillmentService) Status(ctx context.Context, tenantID, reservationID int64, strictness string) (*fulfillment.MatchResult, error) {
	st, err := s.strictness(strictness)
	if err != nil {
		return nil, err
	}
	res, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.TenantID != tenantID {
		return nil, fmt.Errorf("reservation %d: %w", reservationID, domain.ErrNotFound)
	}
	records, err := s.store.ListDispatches(ctx, tenantID, res.Date)
	if err != nil {
		return nil, err
	}
	m := fulfillment.Match(target(res), records, st)
	s.metrics.RecordReconcile(ctx, string(m.Method), string(m.Confidence))
	return &m, nil
}

// ReconcileDay matches every confirmed reservation of tenantID on date.
func (s *FulfillmentService) ReconcileDay(ctx context.Context, tenantID int64, date, strictness string) ([]fulfillment.MatchResult, error) {
	if err := capacity.ValidateDate(date); err != nil {
		return nil, err
	}
	st, err := s.strictness(strictness)
	if err != nil {
		return nil, err
	}
	ctx, span := tbotel.StartReconcileSpan(ctx, tenantID, date, string(st))
	out, err := s.reconcile(ctx, tenantID, date, st)
	tbotel.End(span, err)
	return out, err
}

func (s *FulfillmentService) reconcile(ctx context.Context, tenantID int64, date string, st fulfillment.Strictness) ([]fulfillment.MatchResult, error) {
	reservations, err := s.store.ListReservations(ctx, tenantID, date, date)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListDispatches(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}

	out := make([]fulfillment.MatchResult, 0, len(reservations))
	matched := 0
	for i := range reservations {
		if reservations[i].Status != reservation.StatusConfirmed {
			continue
		}
		m := fulfillment.Match(target(&reservations[i]), records, st)
		s.metrics.RecordReconcile(ctx, string(m.Method), string(m.Confidence))
		if m.Matched {
			matched++
		}
		out = append(out, m)
	}
	slog.InfoContext(ctx, "day reconciled",
		"date", date, "strictness", st, "reservations", len(out), "matched", matched, "records", len(records))
	return out, nil
}

func (s *FulfillmentService) strictness(v string) (fulfillment.Strictness, error) {
	if v == "" {
		return s.fallback, nil
	}
	return fulfillment.ParseStrictness(v)
}

func target(r *reservation.Reservation) fulfillment.Target {
	return fulfillment.Target{
		ReservationID: r.ID,
		ActivityID:    r.ActivityID,
		Date:          r.Date,
		CustomerName:  r.CustomerName,
	}
}
