// Package reservation defines the canonical booking record in the owner
// tenant's namespace and its public tracking projection.
package reservation

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/capacity"
)

// Status of a reservation. Only confirmed reservations consume capacity.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Source records where a reservation came from. All sources share one
// capacity counter per slot.
type Source string

const (
	SourceDirect  Source = "direct"
	SourceImport  Source = "import"
	SourcePartner Source = "partner"
)

// Reservation is a confirmed booking.
type Reservation struct {
	ID            int64           `json:"id"`
	TenantID      int64           `json:"tenantId"`
	ActivityID    int64           `json:"activityId"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	Guests        int             `json:"guests"`
	Status        Status          `json:"status"`
	Source        Source          `json:"source"`
	RequestID     *int64          `json:"requestId,omitempty"`
	ExternalRef   string          `json:"externalRef,omitempty"`
	TrackingToken string          `json:"trackingToken"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Currency      string          `json:"currency"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CreateRequest holds the fields for a direct or imported reservation.
type CreateRequest struct {
	ActivityID    int64  `json:"activityId"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	Guests        int    `json:"guests"`
	ExternalRef   string `json:"externalRef,omitempty"`
}

// Validate checks the create request.
func (r *CreateRequest) Validate() error {
	if r.ActivityID <= 0 {
		return domain.Validationf("activityId is required")
	}
	if err := capacity.ValidateDate(r.Date); err != nil {
		return err
	}
	if err := capacity.ValidateTime(r.Time); err != nil {
		return err
	}
	if strings.TrimSpace(r.CustomerName) == "" {
		return domain.Validationf("customerName is required")
	}
	if r.Guests < 1 {
		return domain.Validationf("guests must be >= 1")
	}
	return nil
}

// SlotKey returns the capacity bucket the reservation occupies.
func (r *Reservation) SlotKey() capacity.Key {
	return capacity.Key{TenantID: r.TenantID, ActivityID: r.ActivityID, Date: r.Date, Time: r.Time}
}

// Price fills unit and total price from a unit price.
func (r *Reservation) Price(unit decimal.Decimal, currency string) {
	r.UnitPrice = unit
	r.Currency = currency
	r.TotalPrice = unit.Mul(decimal.NewFromInt(int64(r.Guests)))
}

// NewTrackingToken returns an opaque, unguessable customer tracking token.
func NewTrackingToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Tracking is what an end customer sees at /track/{token}.
type Tracking struct {
	Status     Status          `json:"status"`
	Activity   string          `json:"activity"`
	Date       string          `json:"date"`
	Time       string          `json:"time"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Currency   string          `json:"currency"`
}
