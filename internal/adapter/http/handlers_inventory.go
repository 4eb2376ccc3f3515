package http

import (
	"net/http"

	"github.com/Strob0t/TourBridge/internal/domain/capacity"
)

// setTotalRequest is the body of PUT .../slots.
type setTotalRequest struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	TotalSlots int    `json:"totalSlots"`
}

// GetSlot handles GET /api/v1/activities/{id}/slot?date=&time=
func (h *Handlers) GetSlot(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	date, ok := requireQuery(w, r, "date")
	if !ok {
		return
	}
	slotTime, ok := requireQuery(w, r, "time")
	if !ok {
		return
	}
	v, err := h.Capacity.Get(r.Context(), tid, id, date, slotTime)
	if err != nil {
		writeDomainError(w, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListSlots handles GET /api/v1/activities/{id}/slots?from=&to=
func (h *Handlers) ListSlots(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
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
	views, err := h.Capacity.List(r.Context(), tid, id, from, to)
	if err != nil {
		writeDomainError(w, err, "activity not found")
		return
	}
	if views == nil {
		views = []capacity.View{}
	}
	writeJSON(w, http.StatusOK, views)
}

// SetSlotTotal handles PUT /api/v1/activities/{id}/slots
func (h *Handlers) SetSlotTotal(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	req, ok := readJSON[setTotalRequest](w, r)
	if !ok {
		return
	}
	v, err := h.Capacity.SetTotal(r.Context(), tid, id, req.Date, req.Time, req.TotalSlots)
	if err != nil {
		writeDomainError(w, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}
