package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	tbhttp "github.com/Strob0t/TourBridge/internal/adapter/http"
	"github.com/Strob0t/TourBridge/internal/config"
	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/activity"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
	"github.com/Strob0t/TourBridge/internal/domain/tenant"
	"github.com/Strob0t/TourBridge/internal/middleware"
	"github.com/Strob0t/TourBridge/internal/port/database"
	"github.com/Strob0t/TourBridge/internal/service"
)

// stubStore implements the parts of database.Store the handler tests reach.
// Any other call panics through the nil embedded interface.
type stubStore struct {
	database.Store

	mu           sync.Mutex
	tenants      map[int64]tenant.Tenant
	activities   []activity.Activity
	reservations []reservation.Reservation
}

func (s *stubStore) GetTenant(_ context.Context, id int64) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *stubStore) CreateActivity(_ context.Context, tenantID int64, req activity.CreateRequest) (*activity.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := activity.Activity{
		ID:              int64(len(s.activities) + 1),
		TenantID:        tenantID,
		Name:            req.Name,
		UnitPrice:       req.UnitPrice,
		Currency:        req.Currency,
		DefaultCapacity: req.DefaultCapacity,
		CreatedAt:       time.Now(),
	}
	s.activities = append(s.activities, a)
	return &a, nil
}

func (s *stubStore) GetActivity(_ context.Context, id int64) (*activity.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.activities {
		if s.activities[i].ID == id {
			a := s.activities[i]
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubStore) ListActivities(_ context.Context, tenantID int64) ([]activity.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []activity.Activity
	for _, a := range s.activities {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubStore) GetReservationByToken(_ context.Context, token string) (*reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reservations {
		if s.reservations[i].TrackingToken == token {
			r := s.reservations[i]
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

// withTenant stands in for the Auth middleware.
func withTenant(id int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id != 0 {
				r = r.WithContext(middleware.WithTenantID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newTestRouter(t *testing.T, store *stubStore, tenantID int64, ready func(context.Context) map[string]string) http.Handler {
	t.Helper()
	fulfillment, err := service.NewFulfillmentService(store, "lenient", nil)
	if err != nil {
		t.Fatal(err)
	}
	events := service.NewEvents(nil, nil)
	tracking := service.NewTrackingService(store, nil, time.Minute, nil)
	h := &tbhttp.Handlers{
		Tenants:      service.NewTenantService(store, nil, config.Auth{}),
		Activities:   service.NewActivityService(store),
		Capacity:     service.NewCapacityService(store, events, nil),
		Partnerships: service.NewPartnershipService(store, events),
		Requests:     service.NewRequestService(store, events, nil, "", nil),
		Settlement:   service.NewSettlementService(store, events),
		Reservations: service.NewReservationService(store, events, tracking, nil),
		Tracking:     tracking,
		Fulfillment:  fulfillment,
		Ready:        ready,
	}
	r := chi.NewRouter()
	r.Use(withTenant(tenantID))
	tbhttp.MountRoutes(r, h)
	return r
}

func newStubStore() *stubStore {
	return &stubStore{
		tenants: map[int64]tenant.Tenant{
			1: {ID: 1, Name: "Kapadokya Balloons", Slug: "kapadokya-balloons", Enabled: true},
		},
		activities: []activity.Activity{
			{ID: 1, TenantID: 1, Name: "Sunrise Balloon Flight", UnitPrice: decimal.NewFromInt(1000), Currency: "TRY", DefaultCapacity: 10},
		},
		reservations: []reservation.Reservation{{
			ID: 7, TenantID: 1, ActivityID: 1, Date: "2026-06-01", Time: "06:00",
			CustomerName: "Ayşe Demir", Guests: 2, Status: reservation.StatusConfirmed,
			TrackingToken: "tok-123", TotalPrice: decimal.NewFromInt(2000), Currency: "TRY",
		}},
	}
}

func TestTrackPublic(t *testing.T) {
	r := newTestRouter(t, newStubStore(), 0, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/track/tok-123", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view reservation.Tracking
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	if view.Activity != "Sunrise Balloon Flight" || view.Quantity != 2 || !view.TotalPrice.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("unexpected tracking view %+v", view)
	}
	if strings.Contains(rec.Body.String(), "Ayşe") {
		t.Fatal("tracking view must not expose the customer name")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/track/unknown", http.NoBody))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAPIRequiresTenant(t *testing.T) {
	r := newTestRouter(t, newStubStore(), 0, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", http.NoBody))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestActivityRoutes(t *testing.T) {
	store := newStubStore()
	r := newTestRouter(t, store, 1, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"me", http.MethodGet, "/api/v1/me", "", http.StatusOK, "kapadokya-balloons"},
		{"list", http.MethodGet, "/api/v1/activities", "", http.StatusOK, "Sunrise Balloon Flight"},
		{"create", http.MethodPost, "/api/v1/activities", `{"name":"Red Valley Jeep Safari","unitPrice":"450","currency":"TRY","defaultCapacity":6}`, http.StatusCreated, "Red Valley Jeep Safari"},
		{"create invalid currency", http.MethodPost, "/api/v1/activities", `{"name":"ATV","unitPrice":"10","currency":"lira"}`, http.StatusBadRequest, ""},
		{"create malformed body", http.MethodPost, "/api/v1/activities", `{"name":`, http.StatusBadRequest, "invalid request body"},
		{"get", http.MethodGet, "/api/v1/activities/1", "", http.StatusOK, "Sunrise Balloon Flight"},
		{"get unknown", http.MethodGet, "/api/v1/activities/99", "", http.StatusNotFound, "activity not found"},
		{"bad id", http.MethodGet, "/api/v1/activities/abc", "", http.StatusBadRequest, "invalid id"},
		{"slots need range", http.MethodGet, "/api/v1/activities/1/slots?from=2026-06-01", "", http.StatusBadRequest, "to is required"},
		{"dispatches need date", http.MethodGet, "/api/v1/dispatches", "", http.StatusBadRequest, "date is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("expected body to contain %q, got %s", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestOtherTenantActivityHidden(t *testing.T) {
	store := newStubStore()
	store.tenants[2] = tenant.Tenant{ID: 2, Name: "Göreme Travel", Slug: "goreme-travel", Enabled: true}
	r := newTestRouter(t, store, 2, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/activities/1", http.NoBody))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another tenant's activity, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/activities", http.NoBody))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", rec.Body.String())
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		deps       map[string]string
		wantStatus int
	}{
		{"all up", map[string]string{"postgres": "ok", "nats": "ok"}, http.StatusOK},
		{"nats down", map[string]string{"postgres": "ok", "nats": "disconnected"}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, newStubStore(), 0, func(context.Context) map[string]string { return tt.deps })
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", http.NoBody))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}
