// Package broadcast defines the port for pushing real-time events to connected clients.
package broadcast

import "context"

// Broadcaster sends real-time events to the clients of specific tenants.
type Broadcaster interface {
	// BroadcastToTenants sends a typed event to every client of the given tenants.
	BroadcastToTenants(ctx context.Context, eventType string, payload any, tenantIDs ...int64)
}
