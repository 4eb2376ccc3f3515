package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	tbotel "github.com/Strob0t/TourBridge/internal/adapter/otel"
	"github.com/Strob0t/TourBridge/internal/adapter/ws"
	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/activity"
	"github.com/Strob0t/TourBridge/internal/domain/request"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
	"github.com/Strob0t/TourBridge/internal/domain/settlement"
	"github.com/Strob0t/TourBridge/internal/port/database"
	"github.com/Strob0t/TourBridge/internal/port/messagequeue"
	"github.com/Strob0t/TourBridge/internal/port/notifier"
)

// RequestResult is a request after a state change plus any side effects
// that could not be delivered.
type RequestResult struct {
	Request  *request.Request `json:"request"`
	Warnings []string         `json:"warnings,omitempty"`
}

// ConvertResult is the outcome of converting an approved request.
type ConvertResult struct {
	Request     *request.Request         `json:"request"`
	Reservation *reservation.Reservation `json:"reservation"`
	Transaction *settlement.Transaction  `json:"transaction,omitempty"`
	// AlreadyConverted is set when the request had been converted before;
	// nothing was created by this call.
	AlreadyConverted bool     `json:"alreadyConverted"`
	Warnings         []string `json:"warnings,omitempty"`
}

// RequestService runs the reservation request state machine. Every
// capacity-affecting step happens inside the slot lock; notifications and
// events run after commit and never undo it.
type RequestService struct {
	store       database.Store
	events      *Events
	notify      *NotificationService
	trackingURL string
	metrics     *tbotel.Metrics
}

// NewRequestService creates a new RequestService. trackingURL is prefixed to
// tracking tokens in customer messages.
func NewRequestService(store database.Store, events *Events, notify *NotificationService, trackingURL string, metrics *tbotel.Metrics) *RequestService {
	return &RequestService{store: store, events: events, notify: notify, trackingURL: trackingURL, metrics: metrics}
}

// Create files a request from senderID against an activity of req.OwnerTenantID.
// Cross-tenant requests need the activity shared on an active partnership;
// same-tenant requests book into the tenant's own capacity. Capacity is
// checked but not held until approval.
func (s *RequestService) Create(ctx context.Context, senderID int64, req request.CreateRequest) (*RequestResult, error) {
	if req.ActivityID <= 0 || req.OwnerTenantID <= 0 {
		return nil, domain.Validationf("ownerTenantId and activityId are required")
	}
	a, err := s.store.GetActivity(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if a.TenantID != req.OwnerTenantID {
		return nil, fmt.Errorf("activity %d: %w", req.ActivityID, domain.ErrNotFound)
	}

	kind := request.OriginViewer
	if senderID != req.OwnerTenantID {
		kind = request.OriginPartner
	}
	unit, _, err := s.unitPrice(ctx, a, senderID)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(unit); err != nil {
		return nil, err
	}

	r := &request.Request{
		OwnerTenantID:           req.OwnerTenantID,
		OriginTenantID:          senderID,
		OriginKind:              kind,
		ActivityID:              req.ActivityID,
		Date:                    req.Date,
		Time:                    req.Time,
		CustomerName:            req.CustomerName,
		CustomerPhone:           req.CustomerPhone,
		Guests:                  req.Guests,
		Notes:                   req.Notes,
		Status:                  request.StatusPending,
		PaymentCollectionType:   req.PaymentCollectionType,
		AmountCollectedBySender: req.AmountCollectedBySender,
	}
	slot, err := currentSlot(ctx, s.store, r.SlotKey())
	if err != nil {
		return nil, err
	}
	if err := slot.Fits(r.Guests); err != nil {
		s.metrics.RecordCapacityRejection(ctx, "create")
		return nil, err
	}
	if err := s.store.CreateRequest(ctx, r); err != nil {
		return nil, err
	}
	r.RequesterType = r.Classify()

	slog.InfoContext(ctx, "request created",
		"request_id", r.ID, "owner_tenant_id", r.OwnerTenantID, "origin", kind, "guests", r.Guests)
	s.metrics.RecordCreated(ctx, string(kind))

	var w warnings
	w.add(s.emit(ctx, r, ""))
	if r.IsCrossTenant() {
		w.add(s.notifyTenant(ctx, r.OwnerTenantID, "request.created", fmt.Sprintf(
			"New partner request #%d: %d guests for %s on %s %s.", r.ID, r.Guests, a.Name, r.Date, r.Time)))
	}
	return &RequestResult{Request: r, Warnings: w}, nil
}

// Get returns a request visible to tenantID.
func (s *RequestService) Get(ctx context.Context, tenantID, id int64) (*request.Request, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.PartyOf(tenantID) == request.PartyNone {
		return nil, fmt.Errorf("request %d: %w", id, domain.ErrNotFound)
	}
	r.RequesterType = r.Classify()
	return r, nil
}

// ListIncoming returns requests against tenantID's activities.
func (s *RequestService) ListIncoming(ctx context.Context, tenantID int64, status request.Status) ([]request.Request, error) {
	return s.list(ctx, database.RequestFilter{OwnerTenantID: tenantID, Status: status})
}

// ListOutgoing returns requests tenantID has sent.
func (s *RequestService) ListOutgoing(ctx context.Context, tenantID int64, status request.Status) ([]request.Request, error) {
	return s.list(ctx, database.RequestFilter{OriginTenantID: tenantID, Status: status})
}

func (s *RequestService) list(ctx context.Context, f database.RequestFilter) ([]request.Request, error) {
	rs, err := s.store.ListRequests(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range rs {
		rs[i].RequesterType = rs[i].Classify()
	}
	return rs, nil
}

// Approve places a capacity hold for the request's guests. The hold and the
// status change commit together under the slot lock.
func (s *RequestService) Approve(ctx context.Context, ownerID, id int64) (*RequestResult, error) {
	ctx, span := tbotel.StartRequestSpan(ctx, "approve", id, ownerID)
	r, err := s.approve(ctx, ownerID, id)
	tbotel.End(span, err)
	if err != nil {
		return nil, err
	}

	var w warnings
	w.add(s.emit(ctx, r, request.StatusPending))
	if r.IsCrossTenant() {
		w.add(s.notifyTenant(ctx, r.OriginTenantID, "request.approved", fmt.Sprintf(
			"Request #%d for %s on %s %s was approved.", r.ID, r.CustomerName, r.Date, r.Time)))
	}
	return &RequestResult{Request: r, Warnings: w}, nil
}

func (s *RequestService) approve(ctx context.Context, ownerID, id int64) (*request.Request, error) {
	r, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	var locked *request.Request
	err = inSlot(ctx, s.store, s.metrics, r.SlotKey(), "approve", func(tx database.SlotTx) error {
		l, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		locked = l
		if err := locked.Transition(ownerID, request.StatusApproved); err != nil {
			return err
		}
		slot := tx.Slot()
		if err := slot.Reserve(locked.Guests); err != nil {
			return err
		}
		return tx.UpdateRequest(ctx, locked)
	})
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			s.metrics.RecordCapacityRejection(ctx, "approve")
		}
		return nil, err
	}
	locked.RequesterType = locked.Classify()
	slog.InfoContext(ctx, "request approved", "request_id", id, "guests", locked.Guests)
	return locked, nil
}

// Reject declines a pending request. note is appended to the process notes.
func (s *RequestService) Reject(ctx context.Context, ownerID, id int64, note string) (*RequestResult, error) {
	r, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := r.Transition(ownerID, request.StatusRejected); err != nil {
		return nil, err
	}
	if note != "" {
		r.AppendProcessNote("Rejected: " + note)
	}
	if err := s.store.UpdateRequest(ctx, r); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "request rejected", "request_id", id)

	var w warnings
	w.add(s.emit(ctx, r, request.StatusPending))
	if r.IsCrossTenant() {
		body := fmt.Sprintf("Request #%d for %s on %s %s was rejected.", r.ID, r.CustomerName, r.Date, r.Time)
		if note != "" {
			body += " Note: " + note
		}
		w.add(s.notifyTenant(ctx, r.OriginTenantID, "request.rejected", body))
	}
	return &RequestResult{Request: r, Warnings: w}, nil
}

// Cancel withdraws a pending or approved request on behalf of its sender. An
// approved request's hold is released by the status change.
func (s *RequestService) Cancel(ctx context.Context, senderID, id int64) (*RequestResult, error) {
	r, err := s.Get(ctx, senderID, id)
	if err != nil {
		return nil, err
	}
	from := r.Status
	var locked *request.Request
	err = inSlot(ctx, s.store, s.metrics, r.SlotKey(), "cancel", func(tx database.SlotTx) error {
		l, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		locked = l
		from = locked.Status
		if err := locked.Transition(senderID, request.StatusCancelled); err != nil {
			return err
		}
		return tx.UpdateRequest(ctx, locked)
	})
	if err != nil {
		return nil, err
	}
	locked.RequesterType = locked.Classify()
	slog.InfoContext(ctx, "request cancelled", "request_id", id, "from", from)

	var w warnings
	w.add(s.emit(ctx, locked, from))
	return &RequestResult{Request: locked, Warnings: w}, nil
}

// Delete soft-deletes a pending request on behalf of its sender.
func (s *RequestService) Delete(ctx context.Context, senderID, id int64) (*RequestResult, error) {
	r, err := s.Get(ctx, senderID, id)
	if err != nil {
		return nil, err
	}
	if err := r.Transition(senderID, request.StatusDeleted); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRequest(ctx, r); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "request deleted", "request_id", id)

	var w warnings
	w.add(s.emit(ctx, r, request.StatusPending))
	return &RequestResult{Request: r, Warnings: w}, nil
}

// Convert turns an approved request into a reservation in the owner's
// namespace and, for cross-tenant requests, records the settlement entry.
// The hold becomes the reservation without changing the booked count.
// Converting twice returns the first reservation and creates nothing.
func (s *RequestService) Convert(ctx context.Context, ownerID, id int64) (*ConvertResult, error) {
	ctx, span := tbotel.StartRequestSpan(ctx, "convert", id, ownerID)
	res, err := s.convert(ctx, ownerID, id)
	tbotel.End(span, err)
	if err != nil {
		return nil, err
	}
	if res.AlreadyConverted {
		return res, nil
	}

	s.metrics.RecordConversion(ctx, res.Request.IsCrossTenant())
	var w warnings
	w.add(s.emit(ctx, res.Request, request.StatusApproved))
	if res.Transaction != nil {
		w.add(s.events.publish(ctx, messagequeue.SubjectSettlementChanged, messagequeue.SettlementChangedPayload{
			TransactionID: res.Transaction.ID, ActorTenantID: ownerID, DeletionStatus: string(res.Transaction.DeletionStatus),
		}))
		s.events.broadcast(ctx, ws.EventSettlementChanged, ws.SettlementChangedEvent{
			TransactionID: res.Transaction.ID, Status: string(res.Transaction.Status),
		}, res.Transaction.SenderTenantID, res.Transaction.ReceiverTenantID)
	}
	w.add(s.notify.notifyWarning(ctx, s.customerMessage(ctx, res.Reservation)))
	res.Warnings = w
	return res, nil
}

func (s *RequestService) convert(ctx context.Context, ownerID, id int64) (*ConvertResult, error) {
	r, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	a, err := s.store.GetActivity(ctx, r.ActivityID)
	if err != nil {
		return nil, err
	}
	unit, cur, err := s.unitPrice(ctx, a, r.OriginTenantID)
	if errors.Is(err, domain.ErrNotFound) {
		// The share was withdrawn after approval; the hold stands at the public price.
		unit, cur, err = a.UnitPrice, a.Currency, nil
	}
	if err != nil {
		return nil, err
	}

	out := &ConvertResult{}
	var existingID int64
	err = inSlot(ctx, s.store, s.metrics, r.SlotKey(), "convert", func(tx database.SlotTx) error {
		locked, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		if locked.Status == request.StatusConverted && locked.ReservationID != nil && locked.PartyOf(ownerID) == request.PartyOwner {
			existingID = *locked.ReservationID
			out.Request = locked
			return nil
		}

		probe := *locked
		if err := probe.Transition(ownerID, request.StatusConverted); err != nil {
			return err
		}

		res := &reservation.Reservation{
			TenantID:      locked.OwnerTenantID,
			ActivityID:    locked.ActivityID,
			Date:          locked.Date,
			Time:          locked.Time,
			CustomerName:  locked.CustomerName,
			CustomerPhone: locked.CustomerPhone,
			Guests:        locked.Guests,
			Status:        reservation.StatusConfirmed,
			Source:        reservation.SourceDirect,
			RequestID:     &locked.ID,
			TrackingToken: reservation.NewTrackingToken(),
		}
		if locked.IsCrossTenant() {
			res.Source = reservation.SourcePartner
		}
		res.Price(unit, cur)
		if err := tx.InsertReservation(ctx, res); err != nil {
			return err
		}
		if err := locked.MarkConverted(ownerID, res.ID); err != nil {
			return err
		}
		if err := tx.UpdateRequest(ctx, locked); err != nil {
			return err
		}
		if locked.IsCrossTenant() {
			t := settlement.FromRequest(locked, res.ID, unit, cur)
			if err := tx.InsertTransaction(ctx, t); err != nil {
				return err
			}
			out.Transaction = t
		}
		out.Request = locked
		out.Reservation = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Request.RequesterType = out.Request.Classify()

	if existingID != 0 {
		existing, err := s.store.GetReservation(ctx, existingID)
		if err != nil {
			return nil, err
		}
		out.Reservation = existing
		out.AlreadyConverted = true
		slog.InfoContext(ctx, "request already converted", "request_id", id, "reservation_id", existingID)
		return out, nil
	}
	slog.InfoContext(ctx, "request converted",
		"request_id", id, "reservation_id", out.Reservation.ID, "total", out.Reservation.TotalPrice.String())
	return out, nil
}

// unitPrice resolves the price senderID books a at: the share price for a
// partner, the public price for the owner itself.
func (s *RequestService) unitPrice(ctx context.Context, a *activity.Activity, senderID int64) (decimal.Decimal, string, error) {
	if senderID == a.TenantID {
		return a.UnitPrice, a.Currency, nil
	}
	sh, err := s.store.FindVisibleShare(ctx, a.ID, senderID)
	if err != nil {
		return decimal.Zero, "", err
	}
	unit, cur := sh.PriceFor(a.UnitPrice, a.Currency)
	return unit, cur, nil
}

// emit publishes a status change and pushes it to both tenants.
func (s *RequestService) emit(ctx context.Context, r *request.Request, from request.Status) string {
	s.metrics.RecordTransition(ctx, string(r.Status))
	s.events.broadcast(ctx, ws.EventRequestStatus, ws.RequestStatusEvent{
		RequestID: r.ID, Status: string(r.Status), ReservationID: r.ReservationID,
	}, r.OwnerTenantID, r.OriginTenantID)
	return s.events.publish(ctx, messagequeue.SubjectRequestStatus, messagequeue.RequestStatusPayload{
		RequestID:      r.ID,
		OwnerTenantID:  r.OwnerTenantID,
		OriginTenantID: r.OriginTenantID,
		From:           string(from),
		To:             string(r.Status),
		ReservationID:  r.ReservationID,
	})
}

func (s *RequestService) notifyTenant(ctx context.Context, tenantID int64, source, body string) string {
	if s.notify == nil {
		return ""
	}
	t, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		slog.WarnContext(ctx, "load tenant for notification", "tenant_id", tenantID, "error", err)
		return fmt.Sprintf("notification %s not delivered", source)
	}
	return s.notify.notifyWarning(ctx, notifier.Message{Phone: t.ContactPhone, Body: body, Source: source})
}

func (s *RequestService) customerMessage(ctx context.Context, res *reservation.Reservation) notifier.Message {
	name := fmt.Sprintf("activity #%d", res.ActivityID)
	if a, err := s.store.GetActivity(ctx, res.ActivityID); err == nil {
		name = a.Name
	}
	body := fmt.Sprintf("Your booking for %s on %s at %s for %d guests is confirmed. Track it at %s%s",
		name, res.Date, res.Time, res.Guests, s.trackingURL, res.TrackingToken)
	return notifier.Message{Phone: res.CustomerPhone, Body: body, Source: "request.converted"}
}
