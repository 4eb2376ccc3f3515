// Package request defines the cross-tenant reservation request and the
// state machine that governs it.
package request

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/TourBridge/internal/domain/capacity"
)

// Status represents the lifecycle state of a reservation request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusConverted Status = "converted"
	StatusCancelled Status = "cancelled"
	StatusDeleted   Status = "deleted"
)

// PaymentCollection describes who collects the customer's money.
type PaymentCollection string

const (
	CollectReceiverFull PaymentCollection = "receiver_full"
	CollectSenderFull   PaymentCollection = "sender_full"
	CollectSenderPart   PaymentCollection = "sender_partial"
)

// OriginKind records how a request entered the system.
type OriginKind string

const (
	OriginViewer  OriginKind = "viewer"  // same-tenant staff booking into own capacity
	OriginPartner OriginKind = "partner" // another tenant through a partnership
)

// RequesterType is the operator-facing classification of a request's origin.
type RequesterType string

const (
	RequesterViewer  RequesterType = "viewer"
	RequesterPartner RequesterType = "partner"
	RequesterUnknown RequesterType = "unknown"
)

// Request is the unit of cross-tenant negotiation. ReservationID is set
// exactly when Status is converted.
type Request struct {
	ID                      int64             `json:"id"`
	OwnerTenantID           int64             `json:"ownerTenantId"`
	OriginTenantID          int64             `json:"originTenantId"`
	OriginKind              OriginKind        `json:"originKind,omitempty"`
	RequesterType           RequesterType     `json:"requesterType"`
	ActivityID              int64             `json:"activityId"`
	Date                    string            `json:"date"`
	Time                    string            `json:"time"`
	CustomerName            string            `json:"customerName"`
	CustomerPhone           string            `json:"customerPhone"`
	Guests                  int               `json:"guests"`
	Notes                   *string           `json:"notes"`
	Status                  Status            `json:"status"`
	PaymentCollectionType   PaymentCollection `json:"paymentCollectionType"`
	AmountCollectedBySender decimal.Decimal   `json:"amountCollectedBySender"`
	ReservationID           *int64            `json:"reservationId"`
	ProcessNotes            *string           `json:"processNotes"`
	Version                 int               `json:"-"`
	CreatedAt               time.Time         `json:"createdAt"`
	UpdatedAt               time.Time         `json:"updatedAt"`
}

// CreateRequest holds the fields a sender submits.
type CreateRequest struct {
	OwnerTenantID           int64             `json:"ownerTenantId"`
	ActivityID              int64             `json:"activityId"`
	Date                    string            `json:"date"`
	Time                    string            `json:"time"`
	CustomerName            string            `json:"customerName"`
	CustomerPhone           string            `json:"customerPhone"`
	Guests                  int               `json:"guests"`
	Notes                   *string           `json:"notes,omitempty"`
	PaymentCollectionType   PaymentCollection `json:"paymentCollectionType"`
	AmountCollectedBySender decimal.Decimal   `json:"amountCollectedBySender"`
}

// RejectRequest carries an optional owner note.
type RejectRequest struct {
	Note string `json:"note,omitempty"`
}

// SlotKey returns the capacity bucket the request targets.
func (r *Request) SlotKey() capacity.Key {
	return capacity.Key{TenantID: r.OwnerTenantID, ActivityID: r.ActivityID, Date: r.Date, Time: r.Time}
}

// IsCrossTenant reports whether sender and receiver are different tenants.
func (r *Request) IsCrossTenant() bool {
	return r.OriginTenantID != r.OwnerTenantID
}

// HoldsCapacity reports whether the request currently counts against its slot.
func (r *Request) HoldsCapacity() bool {
	return r.Status == StatusApproved
}

// AppendProcessNote adds a line to the process notes.
func (r *Request) AppendProcessNote(line string) {
	if line == "" {
		return
	}
	if r.ProcessNotes == nil || *r.ProcessNotes == "" {
		r.ProcessNotes = &line
		return
	}
	joined := *r.ProcessNotes + "\n" + line
	r.ProcessNotes = &joined
}
