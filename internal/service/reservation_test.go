package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/TourBridge/internal/adapter/tiered"
	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
	"github.com/Strob0t/TourBridge/internal/port/messagequeue"
)

func directReq(f *fixture, guests int) reservation.CreateRequest {
	return reservation.CreateRequest{
		ActivityID: f.flight.ID, Date: testDate, Time: testTime,
		CustomerName: "Hans Müller", CustomerPhone: "+491701234567", Guests: guests,
	}
}

func TestSharedCounterAcrossSources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.capacity.SetTotal(ctx, f.owner, f.flight.ID, testDate, testTime, 6); err != nil {
		t.Fatal(err)
	}

	if _, err := f.reservations.Create(ctx, f.owner, directReq(f, 2)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.reservations.Import(ctx, messagequeue.ReservationImportedPayload{
		TenantID: f.owner, ExternalRef: "GYG-1001", ActivityID: f.flight.ID,
		Date: testDate, Time: testTime, CustomerName: "Jane Doe", Guests: 2,
	}); err != nil {
		t.Fatal(err)
	}
	f.approved(t, 1)

	if got := f.available(t); got != 1 {
		t.Fatalf("expected 1 available after direct, import and hold, got %d", got)
	}
	if _, err := f.requests.Approve(ctx, f.owner, f.newRequest(t, 1).ID); err != nil {
		t.Fatalf("last place must be approvable: %v", err)
	}
	if _, err := f.reservations.Create(ctx, f.owner, directReq(f, 1)); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected full slot, got %v", err)
	}
}

func TestImportDeduplicatesExternalRef(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := messagequeue.ReservationImportedPayload{
		TenantID: f.owner, ExternalRef: "VIATOR-77", ActivityID: f.flight.ID,
		Date: testDate, Time: testTime, CustomerName: "Jane Doe", Guests: 2,
	}
	first, err := f.reservations.Import(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.reservations.Import(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID || first.Source != reservation.SourceImport {
		t.Fatalf("expected the same imported reservation, got %d and %d", first.ID, second.ID)
	}
	if got := f.available(t); got != 8 {
		t.Fatalf("duplicate import booked twice, available=%d", got)
	}

	p.ExternalRef = ""
	if _, err := f.reservations.Import(ctx, p); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected missing external ref to fail, got %v", err)
	}
}

func TestCancelReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.reservations.Create(ctx, f.owner, directReq(f, 3))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.reservations.Cancel(ctx, f.sender, res.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("other tenant must not cancel, got %v", err)
	}
	cancelled, err := f.reservations.Cancel(ctx, f.owner, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != reservation.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if got := f.available(t); got != 10 {
		t.Fatalf("cancellation must free places, available=%d", got)
	}
	if _, err := f.reservations.Cancel(ctx, f.owner, res.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected double cancel to fail, got %v", err)
	}
}

func TestTrackingLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l1 := newMemCache()
	f.tracking = NewTrackingService(f.store, tiered.New(l1, nil, time.Minute), time.Minute, nil)
	f.reservations = NewReservationService(f.store, nil, f.tracking, nil)

	res, err := f.reservations.Create(ctx, f.owner, directReq(f, 2))
	if err != nil {
		t.Fatal(err)
	}
	tr, err := f.tracking.Lookup(ctx, res.TrackingToken)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Status != reservation.StatusConfirmed || tr.Activity != "Sunrise Balloon Flight" || tr.Quantity != 2 {
		t.Fatalf("unexpected tracking view %+v", tr)
	}
	if _, ok := l1.get(trackingKey(res.TrackingToken)); !ok {
		t.Fatal("expected tracking view to be cached")
	}

	if _, err := f.reservations.Cancel(ctx, f.owner, res.ID); err != nil {
		t.Fatal(err)
	}
	tr, err = f.tracking.Lookup(ctx, res.TrackingToken)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Status != reservation.StatusCancelled {
		t.Fatalf("cancel must invalidate the cached view, got %s", tr.Status)
	}

	if _, err := f.tracking.Lookup(ctx, "unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, ok := l1.get(trackingKey("unknown")); ok {
		t.Fatal("misses must not be cached")
	}
}

func TestSetTotalBelowBooked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approved(t, 4)

	if _, err := f.capacity.SetTotal(ctx, f.owner, f.flight.ID, testDate, testTime, 3); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected shrink below booked to fail, got %v", err)
	}
	v, err := f.capacity.SetTotal(ctx, f.owner, f.flight.ID, testDate, testTime, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v.AvailableSlots != 0 || v.BookedSlots != 4 {
		t.Fatalf("unexpected view %+v", v)
	}
	if _, err := f.capacity.SetTotal(ctx, f.sender, f.flight.ID, testDate, testTime, 50); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("only the owner may set capacity, got %v", err)
	}

	views, err := f.capacity.List(ctx, f.owner, f.flight.ID, testDate, "2026-06-30")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].TotalSlots != 4 {
		t.Fatalf("unexpected slots %+v", views)
	}
}
