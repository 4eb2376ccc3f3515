package ws

// Event type constants for WebSocket messages.
const (
	EventRequestStatus     = "request.status"
	EventSettlementChanged = "settlement.changed"
	EventPartnershipStatus = "partnership.status"
	EventSlotChanged       = "slot.changed"
)

// RequestStatusEvent is sent to both parties when a request changes status.
type RequestStatusEvent struct {
	RequestID     int64  `json:"requestId"`
	Status        string `json:"status"`
	ReservationID *int64 `json:"reservationId,omitempty"`
}

// SettlementChangedEvent is sent to both parties on every deletion protocol step.
type SettlementChangedEvent struct {
	TransactionID  int64  `json:"transactionId"`
	Status         string `json:"status"`
	DeletionStatus string `json:"deletionStatus"`
}

// PartnershipStatusEvent is sent to both tenants of a partnership.
type PartnershipStatusEvent struct {
	PartnershipID int64  `json:"partnershipId"`
	Status        string `json:"status"`
}

// SlotChangedEvent tells the owner's clients to refresh a slot.
type SlotChangedEvent struct {
	ActivityID     int64  `json:"activityId"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	AvailableSlots int    `json:"availableSlots"`
}
