// Package ws implements the WebSocket adapter for live request and settlement updates.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/coder/websocket"

	"github.com/Strob0t/TourBridge/internal/middleware"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection bound to one tenant.
type conn struct {
	ws       *websocket.Conn
	cancel   context.CancelFunc
	tenantID int64
}

// Hub manages active WebSocket connections and fans messages out per tenant.
type Hub struct {
	mu           sync.RWMutex
	conns        map[*conn]struct{}
	allowOrigins []string
}

// NewHub creates a new WebSocket hub. allowOrigins are host patterns passed
// to the upgrader; an empty list allows same-origin only.
func NewHub(allowOrigins ...string) *Hub {
	return &Hub{
		conns:        make(map[*conn]struct{}),
		allowOrigins: allowOrigins,
	}
}

// HandleWS upgrades an authenticated request to a WebSocket bound to the
// caller's tenant.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.allowOrigins})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The request context ends with the handler; the read loop outlives it.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &conn{ws: ws, cancel: cancel, tenantID: tenantID}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "tenant_id", tenantID, "remote", r.RemoteAddr)

	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// BroadcastToTenants marshals a typed event and sends it to every client of
// the given tenants.
func (h *Hub) BroadcastToTenants(ctx context.Context, eventType string, payload any, tenantIDs ...int64) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}
	h.send(ctx, Message{Type: eventType, Payload: data}, tenantIDs)
}

func (h *Hub) send(ctx context.Context, msg Message, tenantIDs []int64) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if !slices.Contains(tenantIDs, c.tenantID) {
			continue
		}
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed", "tenant_id", c.tenantID, "error", err)
			go h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected", "tenant_id", c.tenantID)
	}
}
