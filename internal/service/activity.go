package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/activity"
	"github.com/Strob0t/TourBridge/internal/port/database"
)

// ActivityService manages the bookable activities of a tenant.
type ActivityService struct {
	store database.Store
}

// NewActivityService creates a new ActivityService.
func NewActivityService(store database.Store) *ActivityService {
	return &ActivityService{store: store}
}

// Create validates and creates an activity owned by tenantID.
func (s *ActivityService) Create(ctx context.Context, tenantID int64, req activity.CreateRequest) (*activity.Activity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	a, err := s.store.CreateActivity(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "activity created", "activity_id", a.ID, "name", a.Name)
	return a, nil
}

// Get returns one of tenantID's activities.
func (s *ActivityService) Get(ctx context.Context, tenantID, id int64) (*activity.Activity, error) {
	return ownedActivity(ctx, s.store, tenantID, id)
}

// List returns tenantID's activities.
func (s *ActivityService) List(ctx context.Context, tenantID int64) ([]activity.Activity, error) {
	return s.store.ListActivities(ctx, tenantID)
}

// ownedActivity loads an activity and hides it from every tenant but its owner.
func ownedActivity(ctx context.Context, store database.Store, tenantID, id int64) (*activity.Activity, error) {
	a, err := store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.TenantID != tenantID {
		return nil, fmt.Errorf("activity %d: %w", id, domain.ErrNotFound)
	}
	return a, nil
}
