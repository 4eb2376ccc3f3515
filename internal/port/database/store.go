// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/TourBridge/internal/domain/activity"
	"github.com/Strob0t/TourBridge/internal/domain/capacity"
	"github.com/Strob0t/TourBridge/internal/domain/fulfillment"
	"github.com/Strob0t/TourBridge/internal/domain/partnership"
	"github.com/Strob0t/TourBridge/internal/domain/request"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
	"github.com/Strob0t/TourBridge/internal/domain/settlement"
	"github.com/Strob0t/TourBridge/internal/domain/tenant"
)

// Store is the port interface for database operations.
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error)
	GetTenant(ctx context.Context, id int64) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	UpdateTenant(ctx context.Context, id int64, req tenant.UpdateRequest) (*tenant.Tenant, error)
	CreateAPIKey(ctx context.Context, tenantID int64, prefix, hash string) (*tenant.APIKey, error)
	GetAPIKeyByPrefix(ctx context.Context, prefix string) (*tenant.APIKey, error)
	RevokeAPIKey(ctx context.Context, tenantID, id int64) error

	// Activities
	CreateActivity(ctx context.Context, tenantID int64, req activity.CreateRequest) (*activity.Activity, error)
	GetActivity(ctx context.Context, id int64) (*activity.Activity, error)
	ListActivities(ctx context.Context, tenantID int64) ([]activity.Activity, error)

	// Capacity. ListSlots returns materialised slots with derived booked counts.
	ListSlots(ctx context.Context, tenantID, activityID int64, from, to string) ([]capacity.Slot, error)
	// InSlotTx runs fn in one transaction holding the row lock of the slot
	// identified by key, creating the row from the activity default if missing.
	InSlotTx(ctx context.Context, key capacity.Key, fn func(tx SlotTx) error) error

	// Partnerships
	CreatePartnership(ctx context.Context, requesterID, partnerID int64) (*partnership.Partnership, error)
	GetPartnership(ctx context.Context, id int64) (*partnership.Partnership, error)
	FindPartnership(ctx context.Context, tenantA, tenantB int64) (*partnership.Partnership, error)
	ListPartnerships(ctx context.Context, tenantID int64) ([]partnership.Partnership, error)
	UpdatePartnership(ctx context.Context, p *partnership.Partnership) error
	UpsertShare(ctx context.Context, s *partnership.Share) error
	DeleteShare(ctx context.Context, activityID, partnershipID int64) error
	ListShares(ctx context.Context, partnershipID int64) ([]partnership.Share, error)
	// ListVisibleShares returns shares owned by other tenants on partnerships
	// that are active and include viewerID.
	ListVisibleShares(ctx context.Context, viewerID int64) ([]VisibleShare, error)
	// FindVisibleShare returns the active share through which viewerID sees activityID.
	FindVisibleShare(ctx context.Context, activityID, viewerID int64) (*partnership.Share, error)

	// Requests
	CreateRequest(ctx context.Context, r *request.Request) error
	GetRequest(ctx context.Context, id int64) (*request.Request, error)
	ListRequests(ctx context.Context, f RequestFilter) ([]request.Request, error)
	// UpdateRequest persists a transition that does not touch capacity.
	UpdateRequest(ctx context.Context, r *request.Request) error

	// Reservations
	GetReservation(ctx context.Context, id int64) (*reservation.Reservation, error)
	GetReservationByToken(ctx context.Context, token string) (*reservation.Reservation, error)
	ListReservations(ctx context.Context, tenantID int64, from, to string) ([]reservation.Reservation, error)

	// Settlement
	GetTransaction(ctx context.Context, id int64) (*settlement.Transaction, error)
	ListTransactions(ctx context.Context, tenantID int64, includeRetired bool) ([]settlement.Transaction, error)
	UpdateTransaction(ctx context.Context, t *settlement.Transaction) error

	// Fulfillment
	CreateDispatch(ctx context.Context, d *fulfillment.DispatchRecord) error
	ListDispatches(ctx context.Context, tenantID int64, date string) ([]fulfillment.DispatchRecord, error)
}

// SlotTx is the view of a locked capacity slot handed to InSlotTx callbacks.
// Lock order inside is always slot row first, then request or reservation row.
type SlotTx interface {
	// Slot returns the locked slot with its booked count as of the lock.
	Slot() capacity.Slot
	SetTotal(ctx context.Context, total int) error

	LockRequest(ctx context.Context, id int64) (*request.Request, error)
	UpdateRequest(ctx context.Context, r *request.Request) error

	LockReservation(ctx context.Context, id int64) (*reservation.Reservation, error)
	InsertReservation(ctx context.Context, r *reservation.Reservation) error
	UpdateReservationStatus(ctx context.Context, id int64, status reservation.Status) error
	FindReservationByExternalRef(ctx context.Context, tenantID int64, ref string) (*reservation.Reservation, error)

	InsertTransaction(ctx context.Context, t *settlement.Transaction) error
}

// RequestFilter selects requests for incoming or outgoing lists.
type RequestFilter struct {
	OwnerTenantID  int64
	OriginTenantID int64
	Status         request.Status
}

// VisibleShare joins a share with the data needed for availability views.
type VisibleShare struct {
	Share     partnership.Share
	Activity  activity.Activity
	OwnerName string
}
