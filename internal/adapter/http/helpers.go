package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/middleware"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// idParam parses a positive integer URL parameter and writes a 400 when it is
// missing or malformed.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// tenantID returns the authenticated tenant. Routes behind Auth always have
// one; a missing tenant means the router was wired without it.
func tenantID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return 0, false
	}
	return id, true
}

// requireQuery writes a 400 error and returns false when a query value is empty.
func requireQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		writeError(w, http.StatusBadRequest, name+" is required")
		return "", false
	}
	return v, true
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error          string `json:"error"`
	Status         string `json:"status,omitempty"`
	AvailableSlots *int   `json:"availableSlots,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps service errors to HTTP status codes. Capacity and
// transition conflicts carry the free places or current status so clients can
// refresh without a second call.
func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	var (
		capErr   *domain.CapacityError
		transErr *domain.TransitionError
	)
	switch {
	case errors.As(err, &capErr):
		avail := capErr.Available
		writeJSON(w, http.StatusConflict, errorResponse{Error: domain.ErrCapacityExceeded.Error(), AvailableSlots: &avail})
	case errors.As(err, &transErr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: transErr.Error(), Status: transErr.From})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, fallbackMsg)
	case errors.Is(err, domain.ErrUnauthorizedParty):
		writeError(w, http.StatusForbidden, "not permitted for this tenant")
	case errors.Is(err, domain.ErrDeletionConflict):
		writeError(w, http.StatusConflict, domain.ErrDeletionConflict.Error())
	case errors.Is(err, domain.ErrCapacityExceeded), errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "resource was modified by another request")
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimSuffix(err.Error(), ": "+domain.ErrValidation.Error())
		writeError(w, http.StatusBadRequest, msg)
	default:
		writeInternalError(w, err)
	}
}

// writeInternalError logs the actual error server-side and returns a generic message to the client.
func writeInternalError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
