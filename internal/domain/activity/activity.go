// Package activity defines bookable tour activities owned by a tenant.
package activity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/TourBridge/internal/domain"
)

// Activity is a bookable product with a public unit price and a default per-slot capacity.
type Activity struct {
	ID              int64           `json:"id"`
	TenantID        int64           `json:"tenantId"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Currency        string          `json:"currency"`
	DefaultCapacity int             `json:"defaultCapacity"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// CreateRequest holds the fields needed to create an activity.
type CreateRequest struct {
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Currency        string          `json:"currency"`
	DefaultCapacity int             `json:"defaultCapacity"`
}

// Validate checks the create request.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return domain.Validationf("name is required")
	}
	if r.UnitPrice.IsNegative() {
		return domain.Validationf("unitPrice must be non-negative")
	}
	if err := ValidateCurrency(r.Currency); err != nil {
		return err
	}
	if r.DefaultCapacity < 0 {
		return domain.Validationf("defaultCapacity must be non-negative")
	}
	return nil
}

// ValidateCurrency checks for a three-letter upper-case ISO 4217 style code.
func ValidateCurrency(c string) error {
	if len(c) != 3 {
		return domain.Validationf("invalid currency %q", c)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return domain.Validationf("invalid currency %q", c)
		}
	}
	return nil
}
