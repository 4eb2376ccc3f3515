package http

import (
	"net/http"

	"github.com/Strob0t/TourBridge/internal/domain/fulfillment"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
)

// ListReservations handles GET /api/v1/reservations?from=&to=
func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	from, ok := requireQuery(w, r, "from")
	if !ok {
		return
	}
	to, ok := requireQuery(w, r, "to")
	if !ok {
		return
	}
	items, err := h.Reservations.List(r.Context(), tid, from, to)
	if err != nil {
		writeDomainError(w, err, "not found")
		return
	}
	if items == nil {
		items = []reservation.Reservation{}
	}
	writeJSON(w, http.StatusOK, items)
}

// FulfillmentStatus handles GET /api/v1/reservations/{id}/fulfillment?strictness=
func (h *Handlers) FulfillmentStatus(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	m, err := h.Fulfillment.Status(r.Context(), tid, id, r.URL.Query().Get("strictness"))
	if err != nil {
		writeDomainError(w, err, "reservation not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ListDispatches handles GET /api/v1/dispatches?date=
func (h *Handlers) ListDispatches(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	date, ok := requireQuery(w, r, "date")
	if !ok {
		return
	}
	records, err := h.Fulfillment.ListDispatches(r.Context(), tid, date)
	if err != nil {
		writeDomainError(w, err, "not found")
		return
	}
	if records == nil {
		records = []fulfillment.DispatchRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ReconcileDay handles GET /api/v1/reconcile?date=&strictness=
func (h *Handlers) ReconcileDay(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	date, ok := requireQuery(w, r, "date")
	if !ok {
		return
	}
	results, err := h.Fulfillment.ReconcileDay(r.Context(), tid, date, r.URL.Query().Get("strictness"))
	if err != nil {
		writeDomainError(w, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, results)
}
