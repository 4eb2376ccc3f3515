package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. Everything
// under /api/v1 expects the Auth middleware to have bound a tenant; /health
// and /track are public.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.HealthReady)
	r.Get("/track/{token}", h.Track)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Calling tenant
		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)
		r.Post("/me/keys", h.IssueKey)
		r.Delete("/me/keys/{id}", h.RevokeKey)

		// Activities and capacity
		r.Get("/activities", handleList(h.Activities.List))
		r.Post("/activities", handleCreate(h.Activities.Create))
		r.Get("/activities/{id}", handleGet(h.Activities.Get, "activity not found"))
		r.Get("/activities/{id}/slot", h.GetSlot)
		r.Get("/activities/{id}/slots", h.ListSlots)
		r.Put("/activities/{id}/slots", h.SetSlotTotal)

		// Partnerships and shares
		r.Get("/partnerships", handleList(h.Partnerships.List))
		r.Post("/partnerships", handleCreate(h.Partnerships.Create))
		r.Get("/partnerships/{id}", handleGet(h.Partnerships.Get, "partnership not found"))
		r.Post("/partnerships/{id}/accept", handleAction(h.Partnerships.Accept, "partnership not found"))
		r.Post("/partnerships/{id}/revoke", handleAction(h.Partnerships.Revoke, "partnership not found"))
		r.Post("/partnerships/{id}/reactivate", handleAction(h.Partnerships.Reactivate, "partnership not found"))
		r.Get("/partnerships/{id}/shares", h.ListShares)
		r.Post("/partnerships/{id}/shares", h.Share)
		r.Delete("/partnerships/{id}/shares/{activityId}", h.Unshare)
		r.Get("/partners/availability", h.SharedAvailability)

		// Reservation requests
		r.Post("/requests", handleCreate(h.Requests.Create))
		r.Get("/requests/incoming", h.ListIncomingRequests)
		r.Get("/requests/outgoing", h.ListOutgoingRequests)
		r.Get("/requests/{id}", handleGet(h.Requests.Get, "request not found"))
		r.Delete("/requests/{id}", handleAction(h.Requests.Delete, "request not found"))
		r.Post("/requests/{id}/approve", handleAction(h.Requests.Approve, "request not found"))
		r.Post("/requests/{id}/reject", h.RejectRequest)
		r.Post("/requests/{id}/cancel", handleAction(h.Requests.Cancel, "request not found"))
		r.Post("/requests/{id}/convert", h.ConvertRequest)

		// Settlement
		r.Get("/transactions", h.ListTransactions)
		r.Get("/transactions/{id}", handleGet(h.Settlement.Get, "transaction not found"))
		r.Post("/transactions/{id}/deletion", handleAction(h.Settlement.RequestDeletion, "transaction not found"))
		r.Post("/transactions/{id}/deletion/approve", handleAction(h.Settlement.ApproveDeletion, "transaction not found"))
		r.Post("/transactions/{id}/deletion/reject", h.RejectDeletion)
		r.Get("/balances", handleList(h.Settlement.Balances))

		// Reservations and fulfilment
		r.Post("/reservations", handleCreate(h.Reservations.Create))
		r.Get("/reservations", h.ListReservations)
		r.Get("/reservations/{id}", handleGet(h.Reservations.Get, "reservation not found"))
		r.Post("/reservations/{id}/cancel", handleAction(h.Reservations.Cancel, "reservation not found"))
		r.Get("/reservations/{id}/fulfillment", h.FulfillmentStatus)
		r.Post("/dispatches", handleCreate(h.Fulfillment.RecordDispatch))
		r.Get("/dispatches", h.ListDispatches)
		r.Get("/reconcile", h.ReconcileDay)
	})
}
