// Package partnership defines the authorization relationship between two
// tenants and the activity shares that ride on it.
package partnership

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/capacity"
)

// Status represents the lifecycle state of a partnership.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Partnership links two tenants. It is mutual once active: either side sees
// the activities the other side has shared on it.
type Partnership struct {
	ID                int64     `json:"id"`
	RequesterTenantID int64     `json:"requesterTenantId"`
	PartnerTenantID   int64     `json:"partnerTenantId"`
	Status            Status    `json:"status"`
	Version           int       `json:"version"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// CreateRequest invites another tenant into a partnership.
type CreateRequest struct {
	PartnerTenantID int64 `json:"partnerTenantId"`
}

// IsParty reports whether tenantID is one of the two sides.
func (p *Partnership) IsParty(tenantID int64) bool {
	return p.RequesterTenantID == tenantID || p.PartnerTenantID == tenantID
}

// Counterparty returns the other side of the partnership for tenantID.
func (p *Partnership) Counterparty(tenantID int64) int64 {
	if p.RequesterTenantID == tenantID {
		return p.PartnerTenantID
	}
	return p.RequesterTenantID
}

// Accept moves a pending partnership to active. Only the invited tenant may accept.
func (p *Partnership) Accept(by int64) error {
	if p.PartnerTenantID != by {
		return domain.ErrUnauthorizedParty
	}
	if p.Status != StatusPending {
		return &domain.TransitionError{Entity: "partnership", From: string(p.Status), To: string(StatusActive)}
	}
	p.Status = StatusActive
	return nil
}

// Revoke hides all shared capacity between the two tenants. Shares are kept.
func (p *Partnership) Revoke(by int64) error {
	if !p.IsParty(by) {
		return domain.ErrUnauthorizedParty
	}
	if p.Status == StatusRevoked {
		return &domain.TransitionError{Entity: "partnership", From: string(p.Status), To: string(StatusRevoked)}
	}
	p.Status = StatusRevoked
	return nil
}

// Reactivate re-opens a revoked partnership as a pending invitation from by
// to the counterparty, who has to accept again.
func (p *Partnership) Reactivate(by int64) error {
	if !p.IsParty(by) {
		return domain.ErrUnauthorizedParty
	}
	if p.Status != StatusRevoked {
		return &domain.TransitionError{Entity: "partnership", From: string(p.Status), To: string(StatusPending)}
	}
	other := p.Counterparty(by)
	p.RequesterTenantID, p.PartnerTenantID = by, other
	p.Status = StatusPending
	return nil
}

// Share marks an activity's capacity as visible on a partnership, optionally
// with a partner-facing price distinct from the public one.
type Share struct {
	ActivityID       int64            `json:"activityId"`
	PartnershipID    int64            `json:"partnershipId"`
	OwnerTenantID    int64            `json:"ownerTenantId"`
	PartnerUnitPrice *decimal.Decimal `json:"partnerUnitPrice,omitempty"`
	Currency         string           `json:"currency,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// ShareRequest is the body of a share call.
type ShareRequest struct {
	ActivityID       int64            `json:"activityId"`
	PartnerUnitPrice *decimal.Decimal `json:"partnerUnitPrice,omitempty"`
	Currency         string           `json:"currency,omitempty"`
}

// Validate checks the share request.
func (r *ShareRequest) Validate() error {
	if r.ActivityID <= 0 {
		return domain.Validationf("activityId is required")
	}
	if r.PartnerUnitPrice != nil && r.PartnerUnitPrice.IsNegative() {
		return domain.Validationf("partnerUnitPrice must be non-negative")
	}
	if r.Currency != "" && r.PartnerUnitPrice == nil {
		return domain.Validationf("currency requires partnerUnitPrice")
	}
	return nil
}

// PriceFor resolves the partner-facing unit price: the share override when
// present, otherwise the owner's public price.
func (s *Share) PriceFor(public decimal.Decimal, publicCurrency string) (decimal.Decimal, string) {
	if s == nil || s.PartnerUnitPrice == nil {
		return public, publicCurrency
	}
	cur := s.Currency
	if cur == "" {
		cur = publicCurrency
	}
	return *s.PartnerUnitPrice, cur
}

// SharedActivity is one shared activity with its slots in the queried range.
type SharedActivity struct {
	ActivityID   int64           `json:"activityId"`
	ActivityName string          `json:"activityName"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Currency     string          `json:"currency"`
	Capacities   []capacity.View `json:"capacities"`
}

// PartnerAvailability groups shared activities by the tenant that owns them.
type PartnerAvailability struct {
	PartnerTenantID   int64            `json:"partnerTenantId"`
	PartnerTenantName string           `json:"partnerTenantName"`
	Activities        []SharedActivity `json:"activities"`
}
