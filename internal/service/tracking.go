package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tbotel "github.com/Strob0t/TourBridge/internal/adapter/otel"
	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
	"github.com/Strob0t/TourBridge/internal/port/database"
)

// Loader is a cache that fills misses through a single flight per key.
type Loader interface {
	Fetch(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// TrackingService serves the public, unauthenticated tracking view.
type TrackingService struct {
	store   database.Store
	cache   Loader
	ttl     time.Duration
	metrics *tbotel.Metrics
}

// NewTrackingService creates a new TrackingService. cache may be nil.
func NewTrackingService(store database.Store, cache Loader, ttl time.Duration, metrics *tbotel.Metrics) *TrackingService {
	return &TrackingService{store: store, cache: cache, ttl: ttl, metrics: metrics}
}

// Lookup returns the tracking view for token. Unknown tokens yield ErrNotFound
// and are not cached.
func (s *TrackingService) Lookup(ctx context.Context, token string) (*reservation.Tracking, error) {
	if token == "" {
		return nil, fmt.Errorf("tracking token: %w", domain.ErrNotFound)
	}

	var (
		data []byte
		err  error
	)
	if s.cache != nil {
		data, err = s.cache.Fetch(ctx, trackingKey(token), s.ttl, func(ctx context.Context) ([]byte, error) {
			return s.load(ctx, token)
		})
	} else {
		data, err = s.load(ctx, token)
	}
	s.metrics.RecordTrackingLookup(ctx, err == nil)
	if err != nil {
		return nil, err
	}

	var t reservation.Tracking
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode tracking: %w", err)
	}
	return &t, nil
}

func (s *TrackingService) load(ctx context.Context, token string) ([]byte, error) {
	res, err := s.store.GetReservationByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	name := ""
	if a, err := s.store.GetActivity(ctx, res.ActivityID); err == nil {
		name = a.Name
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return json.Marshal(reservation.Tracking{
		Status:     res.Status,
		Activity:   name,
		Date:       res.Date,
		Time:       res.Time,
		Quantity:   res.Guests,
		TotalPrice: res.TotalPrice,
		Currency:   res.Currency,
	})
}

// Invalidate drops the cached view of token.
func (s *TrackingService) Invalidate(ctx context.Context, token string) {
	if s == nil || s.cache == nil || token == "" {
		return
	}
	if err := s.cache.Delete(ctx, trackingKey(token)); err != nil {
		slog.WarnContext(ctx, "invalidate tracking cache", "error", err)
	}
}

func trackingKey(token string) string { return "track:" + token }
