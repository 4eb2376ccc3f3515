// Package notifier defines the outbound message port used to reach customers
// and partner tenants by phone.
package notifier

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a notifier is not properly configured.
var ErrNotConfigured = errors.New("notifier: not configured")

// Message is a rendered text addressed to one phone number.
type Message struct {
	Phone  string `json:"phone"`
	Body   string `json:"body"`
	Source string `json:"source"` // e.g. "request.approved", "request.converted"
}

// Notifier is the port interface for delivering messages. A failed Send
// never undoes the state change that triggered it.
type Notifier interface {
	// Name returns the unique identifier for this notifier (e.g. "whatsapp", "log").
	Name() string

	// Send delivers a message.
	Send(ctx context.Context, msg Message) error
}
