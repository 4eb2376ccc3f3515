package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tbotel "github.com/Strob0t/TourBridge/internal/adapter/otel"
	"github.com/Strob0t/TourBridge/internal/adapter/ws"
	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/capacity"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
	"github.com/Strob0t/TourBridge/internal/port/database"
	"github.com/Strob0t/TourBridge/internal/port/messagequeue"
)

// ReservationService books direct and imported reservations into the same
// per-slot counter partner conversions use.
type ReservationService struct {
	store    database.Store
	events   *Events
	tracking *TrackingService
	metrics  *tbotel.Metrics
}

// NewReservationService creates a new ReservationService. tracking may be nil.
func NewReservationService(store database.Store, events *Events, tracking *TrackingService, metrics *tbotel.Metrics) *ReservationService {
	return &ReservationService{store: store, events: events, tracking: tracking, metrics: metrics}
}

// Create books a direct sale for tenantID.
func (s *ReservationService) Create(ctx context.Context, tenantID int64, req reservation.CreateRequest) (*reservation.Reservation, error) {
	res, _, err := s.book(ctx, tenantID, req, reservation.SourceDirect)
	return res, err
}

// Import books a reservation from an external sales channel. A repeated
// external reference returns the reservation it created the first time.
func (s *ReservationService) Import(ctx context.Context, p messagequeue.ReservationImportedPayload) (*reservation.Reservation, error) {
	if p.ExternalRef == "" {
		return nil, domain.Validationf("external_ref is required")
	}
	res, created, err := s.book(ctx, p.TenantID, reservation.CreateRequest{
		ActivityID:    p.ActivityID,
		Date:          p.Date,
		Time:          p.Time,
		CustomerName:  p.CustomerName,
		CustomerPhone: p.CustomerPhone,
		Guests:        p.Guests,
		ExternalRef:   p.ExternalRef,
	}, reservation.SourceImport)
	if err != nil {
		return nil, err
	}
	if !created {
		slog.InfoContext(ctx, "import already applied", "external_ref", p.ExternalRef, "reservation_id", res.ID)
	}
	return res, nil
}

func (s *ReservationService) book(ctx context.Context, tenantID int64, req reservation.CreateRequest, src reservation.Source) (*reservation.Reservation, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	a, err := ownedActivity(ctx, s.store, tenantID, req.ActivityID)
	if err != nil {
		return nil, false, err
	}

	key := capacity.Key{TenantID: tenantID, ActivityID: req.ActivityID, Date: req.Date, Time: req.Time}
	var res *reservation.Reservation
	created := false
	var avail int
	err = inSlot(ctx, s.store, s.metrics, key, "book_"+string(src), func(tx database.SlotTx) error {
		if req.ExternalRef != "" {
			existing, err := tx.FindReservationByExternalRef(ctx, tenantID, req.ExternalRef)
			if err == nil {
				res = existing
				return nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		slot := tx.Slot()
		if err := slot.Reserve(req.Guests); err != nil {
			return err
		}
		res = &reservation.Reservation{
			TenantID:      tenantID,
			ActivityID:    req.ActivityID,
			Date:          req.Date,
			Time:          req.Time,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			Guests:        req.Guests,
			Status:        reservation.StatusConfirmed,
			Source:        src,
			ExternalRef:   req.ExternalRef,
			TrackingToken: reservation.NewTrackingToken(),
		}
		res.Price(a.UnitPrice, a.Currency)
		if err := tx.InsertReservation(ctx, res); err != nil {
			return err
		}
		created = true
		avail = slot.Available()
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			s.metrics.RecordCapacityRejection(ctx, "book_"+string(src))
		}
		return nil, false, err
	}
	if created {
		slog.InfoContext(ctx, "reservation booked",
			"reservation_id", res.ID, "source", src, "slot", key.String(), "guests", res.Guests)
		s.events.broadcast(ctx, ws.EventSlotChanged, ws.SlotChangedEvent{
			ActivityID: key.ActivityID, Date: key.Date, Time: key.Time, AvailableSlots: avail,
		}, tenantID)
	}
	return res, created, nil
}

// Get returns one of tenantID's reservations.
func (s *ReservationService) Get(ctx context.Context, tenantID, id int64) (*reservation.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.TenantID != tenantID {
		return nil, fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
	}
	return res, nil
}

// List returns tenantID's reservations in [from, to].
func (s *ReservationService) List(ctx context.Context, tenantID int64, from, to string) ([]reservation.Reservation, error) {
	if err := capacity.ValidateRange(from, to); err != nil {
		return nil, err
	}
	return s.store.ListReservations(ctx, tenantID, from, to)
}

// Cancel releases a confirmed reservation's places.
func (s *ReservationService) Cancel(ctx context.Context, tenantID, id int64) (*reservation.Reservation, error) {
	res, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	var out *reservation.Reservation
	var avail int
	err = inSlot(ctx, s.store, s.metrics, res.SlotKey(), "cancel_reservation", func(tx database.SlotTx) error {
		locked, err := tx.LockReservation(ctx, id)
		if err != nil {
			return err
		}
		if locked.Status != reservation.StatusConfirmed {
			return &domain.TransitionError{Entity: "reservation", From: string(locked.Status), To: string(reservation.StatusCancelled)}
		}
		if err := tx.UpdateReservationStatus(ctx, id, reservation.StatusCancelled); err != nil {
			return err
		}
		locked.Status = reservation.StatusCancelled
		slot := tx.Slot()
		avail = slot.Available() + locked.Guests
		if avail > slot.TotalSlots {
			avail = slot.TotalSlots
		}
		out = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "reservation cancelled", "reservation_id", id)

	s.tracking.Invalidate(ctx, out.TrackingToken)
	s.events.broadcast(ctx, ws.EventSlotChanged, ws.SlotChangedEvent{
		ActivityID: out.ActivityID, Date: out.Date, Time: out.Time, AvailableSlots: avail,
	}, tenantID)
	return out, nil
}
