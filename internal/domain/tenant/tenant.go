// Package tenant defines the tenant domain model for multi-tenancy.
package tenant

import (
	"regexp"
	"time"

	"github.com/Strob0t/TourBridge/internal/domain"
)

// Tenant is an independent tour-operator account; the unit of data isolation.
type Tenant struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ContactPhone string    `json:"contactPhone,omitempty"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateRequest holds the fields required to create a new tenant.
type CreateRequest struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ContactPhone string `json:"contactPhone,omitempty"`
}

// UpdateRequest holds the fields that can be updated on a tenant.
type UpdateRequest struct {
	Name         string  `json:"name,omitempty"`
	ContactPhone *string `json:"contactPhone,omitempty"`
	Enabled      *bool   `json:"enabled,omitempty"`
}

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// Validate checks the create request.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return domain.Validationf("tenant name is required")
	}
	if !slugRegex.MatchString(r.Slug) {
		return domain.Validationf("invalid slug %q: must be 3-64 lowercase alphanumeric characters or hyphens", r.Slug)
	}
	return nil
}
