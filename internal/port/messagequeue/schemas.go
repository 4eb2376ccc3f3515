package messagequeue

// RequestStatusPayload is the schema for requests.status messages.
type RequestStatusPayload struct {
	RequestID      int64  `json:"request_id"`
	OwnerTenantID  int64  `json:"owner_tenant_id"`
	OriginTenantID int64  `json:"origin_tenant_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	ReservationID  *int64 `json:"reservation_id,omitempty"`
}

// ReservationImportedPayload is the schema for reservations.imported messages.
type ReservationImportedPayload struct {
	TenantID      int64  `json:"tenant_id"`
	ExternalRef   string `json:"external_ref"`
	ActivityID    int64  `json:"activity_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Guests        int    `json:"guests"`
}

// DispatchRecordedPayload is the schema for dispatch.recorded messages.
type DispatchRecordedPayload struct {
	TenantID      int64  `json:"tenant_id"`
	ReservationID *int64 `json:"reservation_id,omitempty"`
	ActivityID    *int64 `json:"activity_id,omitempty"`
	Date          string `json:"date"`
	CustomerName  string `json:"customer_name"`
	Note          string `json:"note"`
}

// SettlementChangedPayload is the schema for settlement.changed messages.
type SettlementChangedPayload struct {
	TransactionID  int64  `json:"transaction_id"`
	ActorTenantID  int64  `json:"actor_tenant_id"`
	DeletionStatus string `json:"deletion_status"`
}
