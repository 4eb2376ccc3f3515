package reservation_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
)

func TestCreateRequestValidate(t *testing.T) {
	valid := reservation.CreateRequest{ActivityID: 1, Date: "2026-05-10", Time: "07:30", CustomerName: "Ayşe", Guests: 2}
	tests := []struct {
		name   string
		mutate func(r *reservation.CreateRequest)
		ok     bool
	}{
		{"valid", func(*reservation.CreateRequest) {}, true},
		{"missing activity", func(r *reservation.CreateRequest) { r.ActivityID = 0 }, false},
		{"bad date", func(r *reservation.CreateRequest) { r.Date = "10/05/2026" }, false},
		{"bad time", func(r *reservation.CreateRequest) { r.Time = "7:30" }, false},
		{"blank name", func(r *reservation.CreateRequest) { r.CustomerName = " " }, false},
		{"zero guests", func(r *reservation.CreateRequest) { r.Guests = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := r.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPrice(t *testing.T) {
	r := reservation.Reservation{Guests: 4}
	r.Price(decimal.RequireFromString("125.50"), "EUR")
	if !r.TotalPrice.Equal(decimal.RequireFromString("502")) {
		t.Fatalf("expected total 502, got %s", r.TotalPrice)
	}
	if r.Currency != "EUR" {
		t.Fatalf("expected currency EUR, got %s", r.Currency)
	}
}

func TestTrackingTokenUnique(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		tok := reservation.NewTrackingToken()
		if len(tok) != 32 {
			t.Fatalf("expected 32 char token, got %q", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}
