package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/TourBridge/internal/domain/request"
)

// ListIncomingRequests handles GET /api/v1/requests/incoming?status=
func (h *Handlers) ListIncomingRequests(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, h.Requests.ListIncoming)
}

// ListOutgoingRequests handles GET /api/v1/requests/outgoing?status=
func (h *Handlers) ListOutgoingRequests(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, h.Requests.ListOutgoing)
}

func (h *Handlers) listRequests(w http.ResponseWriter, r *http.Request, listFn func(context.Context, int64, request.Status) ([]request.Request, error)) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	items, err := listFn(r.Context(), tid, request.Status(r.URL.Query().Get("status")))
	if err != nil {
		writeDomainError(w, err, "not found")
		return
	}
	if items == nil {
		items = []request.Request{}
	}
	writeJSON(w, http.StatusOK, items)
}

// RejectRequest handles POST /api/v1/requests/{id}/reject
func (h *Handlers) RejectRequest(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body request.RejectRequest
	if r.ContentLength != 0 {
		if body, ok = readJSON[request.RejectRequest](w, r); !ok {
			return
		}
	}
	res, err := h.Requests.Reject(r.Context(), tid, id, body.Note)
	if err != nil {
		writeDomainError(w, err, "request not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ConvertRequest handles POST /api/v1/requests/{id}/convert. A repeated
// convert answers 200 with the reservation created the first time.
func (h *Handlers) ConvertRequest(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	res, err := h.Requests.Convert(r.Context(), tid, id)
	if err != nil {
		writeDomainError(w, err, "request not found")
		return
	}
	status := http.StatusCreated
	if res.AlreadyConverted {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}
