package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/TourBridge/internal/domain/tenant"
	"github.com/Strob0t/TourBridge/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Tenants      *service.TenantService
	Activities   *service.ActivityService
	Capacity     *service.CapacityService
	Partnerships *service.PartnershipService
	Requests     *service.RequestService
	Settlement   *service.SettlementService
	Reservations *service.ReservationService
	Tracking     *service.TrackingService
	Fulfillment  *service.FulfillmentService
	Notify       *service.NotificationService

	// Ready reports whether backing services are reachable; nil means always ready.
	Ready func(ctx context.Context) map[string]string
}

// GetMe handles GET /api/v1/me
func (h *Handlers) GetMe(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	t, err := h.Tenants.Get(r.Context(), tid)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateMe handles PUT /api/v1/me. Tenants may not disable themselves.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[tenant.UpdateRequest](w, r)
	if !ok {
		return
	}
	req.Enabled = nil
	t, err := h.Tenants.Update(r.Context(), tid, req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// IssueKey handles POST /api/v1/me/keys
func (h *Handlers) IssueKey(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	issued, err := h.Tenants.IssueKey(r.Context(), tid)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusCreated, issued)
}

// RevokeKey handles DELETE /api/v1/me/keys/{id}
func (h *Handlers) RevokeKey(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Tenants.RevokeKey(r.Context(), tid, id); err != nil {
		writeDomainError(w, err, "api key not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady handles GET /health/ready. Any dependency other than "ok"
// turns the probe into a 503; the notifier breaker is reported but never
// fails readiness.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	out := map[string]string{}
	if h.Ready != nil {
		for name, state := range h.Ready(r.Context()) {
			out[name] = state
			if state != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
	}
	if h.Notify != nil {
		out["notifier"] = h.Notify.Provider() + ":" + h.Notify.BreakerState()
	}
	writeJSON(w, status, out)
}

// Track handles GET /track/{token}, the public customer tracking view.
func (h *Handlers) Track(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tracking.Lookup(r.Context(), urlParam(r, "token"))
	if err != nil {
		writeDomainError(w, err, "reservation not found")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, t)
}
