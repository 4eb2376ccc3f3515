package http

import (
	"net/http"

	"github.com/Strob0t/TourBridge/internal/domain/partnership"
)

// Share handles POST /api/v1/partnerships/{id}/shares
func (h *Handlers) Share(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	req, ok := readJSON[partnership.ShareRequest](w, r)
	if !ok {
		return
	}
	s, err := h.Partnerships.Share(r.Context(), tid, id, req)
	if err != nil {
		writeDomainError(w, err, "partnership or activity not found")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Unshare handles DELETE /api/v1/partnerships/{id}/shares/{activityId}
func (h *Handlers) Unshare(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	activityID, ok := idParam(w, r, "activityId")
	if !ok {
		return
	}
	if err := h.Partnerships.Unshare(r.Context(), tid, id, activityID); err != nil {
		writeDomainError(w, err, "share not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListShares handles GET /api/v1/partnerships/{id}/shares
func (h *Handlers) ListShares(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	shares, err := h.Partnerships.ListShares(r.Context(), tid, id)
	if err != nil {
		writeDomainError(w, err, "partnership not found")
		return
	}
	if shares == nil {
		shares = []partnership.Share{}
	}
	writeJSON(w, http.StatusOK, shares)
}

// SharedAvailability handles GET /api/v1/partners/availability?start=&end=
func (h *Handlers) SharedAvailability(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	start, ok := requireQuery(w, r, "start")
	if !ok {
		return
	}
	end, ok := requireQuery(w, r, "end")
	if !ok {
		return
	}
	out, err := h.Partnerships.SharedAvailability(r.Context(), tid, start, end)
	if err != nil {
		writeDomainError(w, err, "not found")
		return
	}
	if out == nil {
		out = []partnership.PartnerAvailability{}
	}
	writeJSON(w, http.StatusOK, out)
}
