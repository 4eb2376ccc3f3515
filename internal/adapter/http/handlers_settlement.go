package http

import (
	"net/http"
	"strconv"

	"github.com/Strob0t/TourBridge/internal/domain/settlement"
)

type rejectDeletionRequest struct {
	Reason string `json:"reason"`
}

// ListTransactions handles GET /api/v1/transactions?includeRetired=
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	includeRetired, _ := strconv.ParseBool(r.URL.Query().Get("includeRetired"))
	txs, err := h.Settlement.List(r.Context(), tid, includeRetired)
	if err != nil {
		writeDomainError(w, err, "not found")
		return
	}
	if txs == nil {
		txs = []settlement.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// RejectDeletion handles POST /api/v1/transactions/{id}/deletion/reject
func (h *Handlers) RejectDeletion(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenantID(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	req, ok := readJSON[rejectDeletionRequest](w, r)
	if !ok {
		return
	}
	res, err := h.Settlement.RejectDeletion(r.Context(), tid, id, req.Reason)
	if err != nil {
		writeDomainError(w, err, "transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
