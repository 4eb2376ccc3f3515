package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Strob0t/TourBridge/internal/adapter/ws"
	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/capacity"
	"github.com/Strob0t/TourBridge/internal/domain/partnership"
	"github.com/Strob0t/TourBridge/internal/port/database"
)

// PartnershipService manages partnerships, activity shares and the shared
// availability view built on them.
type PartnershipService struct {
	store  database.Store
	events *Events
}

// NewPartnershipService creates a new PartnershipService.
func NewPartnershipService(store database.Store, events *Events) *PartnershipService {
	return &PartnershipService{store: store, events: events}
}

// Create invites partnerID into a partnership with tenantID. A revoked
// partnership between the pair is reactivated instead of duplicated.
func (s *PartnershipService) Create(ctx context.Context, tenantID int64, req partnership.CreateRequest) (*partnership.Partnership, error) {
	if req.PartnerTenantID <= 0 {
		return nil, domain.Validationf("partnerTenantId is required")
	}
	if req.PartnerTenantID == tenantID {
		return nil, domain.Validationf("a tenant cannot partner with itself")
	}
	partner, err := s.store.GetTenant(ctx, req.PartnerTenantID)
	if err != nil {
		return nil, err
	}
	if !partner.Enabled {
		return nil, fmt.Errorf("tenant %d: %w", partner.ID, domain.ErrNotFound)
	}

	existing, err := s.store.FindPartnership(ctx, tenantID, req.PartnerTenantID)
	switch {
	case err == nil && existing.Status == partnership.StatusRevoked:
		return s.Reactivate(ctx, tenantID, existing.ID)
	case err == nil:
		return nil, fmt.Errorf("partnership %d is %s: %w", existing.ID, existing.Status, domain.ErrConflict)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	p, err := s.store.CreatePartnership(ctx, tenantID, req.PartnerTenantID)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "partnership requested", "partnership_id", p.ID, "partner_tenant_id", p.PartnerTenantID)
	s.notify(ctx, p)
	return p, nil
}

// Get returns a partnership visible to tenantID.
func (s *PartnershipService) Get(ctx context.Context, tenantID, id int64) (*partnership.Partnership, error) {
	p, err := s.store.GetPartnership(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsParty(tenantID) {
		return nil, fmt.Errorf("partnership %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// List returns all partnerships tenantID takes part in.
func (s *PartnershipService) List(ctx context.Context, tenantID int64) ([]partnership.Partnership, error) {
	return s.store.ListPartnerships(ctx, tenantID)
}

// Accept activates a pending invitation addressed to tenantID.
func (s *PartnershipService) Accept(ctx context.Context, tenantID, id int64) (*partnership.Partnership, error) {
	return s.transition(ctx, tenantID, id, "accepted", (*partnership.Partnership).Accept)
}

// Revoke hides shared capacity in both directions. Shares are kept so a
// reactivated partnership restores them.
func (s *PartnershipService) Revoke(ctx context.Context, tenantID, id int64) (*partnership.Partnership, error) {
	return s.transition(ctx, tenantID, id, "revoked", (*partnership.Partnership).Revoke)
}

// Reactivate re-invites the counterparty of a revoked partnership.
func (s *PartnershipService) Reactivate(ctx context.Context, tenantID, id int64) (*partnership.Partnership, error) {
	return s.transition(ctx, tenantID, id, "reactivated", (*partnership.Partnership).Reactivate)
}

func (s *PartnershipService) transition(ctx context.Context, tenantID, id int64, verb string, apply func(*partnership.Partnership, int64) error) (*partnership.Partnership, error) {
	p, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(p, tenantID); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePartnership(ctx, p); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "partnership "+verb, "partnership_id", p.ID, "status", p.Status)
	s.notify(ctx, p)
	return p, nil
}

func (s *PartnershipService) notify(ctx context.Context, p *partnership.Partnership) {
	s.events.broadcast(ctx, ws.EventPartnershipStatus, ws.PartnershipStatusEvent{
		PartnershipID: p.ID, Status: string(p.Status),
	}, p.RequesterTenantID, p.PartnerTenantID)
}

// Share publishes one of tenantID's activities on a partnership, optionally
// with a partner-facing price. Sharing again updates the price.
func (s *PartnershipService) Share(ctx context.Context, tenantID, partnershipID int64, req partnership.ShareRequest) (*partnership.Share, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, tenantID, partnershipID); err != nil {
		return nil, err
	}
	a, err := ownedActivity(ctx, s.store, tenantID, req.ActivityID)
	if err != nil {
		return nil, err
	}
	sh := &partnership.Share{
		ActivityID:       a.ID,
		PartnershipID:    partnershipID,
		OwnerTenantID:    tenantID,
		PartnerUnitPrice: req.PartnerUnitPrice,
		Currency:         req.Currency,
	}
	if err := s.store.UpsertShare(ctx, sh); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "activity shared", "partnership_id", partnershipID, "activity_id", a.ID)
	return sh, nil
}

// Unshare withdraws one of tenantID's activities from a partnership.
func (s *PartnershipService) Unshare(ctx context.Context, tenantID, partnershipID, activityID int64) error {
	if _, err := s.Get(ctx, tenantID, partnershipID); err != nil {
		return err
	}
	if _, err := ownedActivity(ctx, s.store, tenantID, activityID); err != nil {
		return err
	}
	if err := s.store.DeleteShare(ctx, activityID, partnershipID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "activity unshared", "partnership_id", partnershipID, "activity_id", activityID)
	return nil
}

// ListShares returns the shares on a partnership from both sides.
func (s *PartnershipService) ListShares(ctx context.Context, tenantID, partnershipID int64) ([]partnership.Share, error) {
	if _, err := s.Get(ctx, tenantID, partnershipID); err != nil {
		return nil, err
	}
	return s.store.ListShares(ctx, partnershipID)
}

// SharedAvailability lists, per partner tenant, the activities shared with
// viewerID on active partnerships and their slots in [start, end]. Revoked or
// pending partnerships contribute nothing, and a viewer never sees its own
// activities here.
func (s *PartnershipService) SharedAvailability(ctx context.Context, viewerID int64, start, end string) ([]partnership.PartnerAvailability, error) {
	if err := capacity.ValidateRange(start, end); err != nil {
		return nil, err
	}
	shares, err := s.store.ListVisibleShares(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	out := []partnership.PartnerAvailability{}
	index := map[int64]int{}
	for i := range shares {
		vs := &shares[i]
		if vs.Activity.TenantID == viewerID {
			continue
		}
		slots, err := s.store.ListSlots(ctx, vs.Activity.TenantID, vs.Activity.ID, start, end)
		if err != nil {
			return nil, err
		}
		unit, cur := vs.Share.PriceFor(vs.Activity.UnitPrice, vs.Activity.Currency)

		pos, ok := index[vs.Activity.TenantID]
		if !ok {
			pos = len(out)
			index[vs.Activity.TenantID] = pos
			out = append(out, partnership.PartnerAvailability{
				PartnerTenantID:   vs.Activity.TenantID,
				PartnerTenantName: vs.OwnerName,
				Activities:        []partnership.SharedActivity{},
			})
		}
		out[pos].Activities = append(out[pos].Activities, partnership.SharedActivity{
			ActivityID:   vs.Activity.ID,
			ActivityName: vs.Activity.Name,
			UnitPrice:    unit,
			Currency:     cur,
			Capacities:   views(slots),
		})
	}
	return out, nil
}
