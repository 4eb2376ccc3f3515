// Package settlement defines the two-party financial record created when a
// cross-tenant request is converted, and its mutual-consent deletion protocol.
package settlement

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/TourBridge/internal/domain/request"
)

// Status of a transaction in settlement views.
type Status string

const (
	StatusActive  Status = "active"
	StatusRetired Status = "retired" // deletion approved; kept for audit
)

// DeletionStatus is the single authoritative field both parties derive their view from.
// The zero value means no deletion was ever requested.
type DeletionStatus string

const (
	DeletionNone     DeletionStatus = ""
	DeletionPending  DeletionStatus = "pending"
	DeletionApproved DeletionStatus = "approved"
	DeletionRejected DeletionStatus = "rejected"
)

// MarshalJSON encodes DeletionNone as null.
func (d DeletionStatus) MarshalJSON() ([]byte, error) {
	if d == DeletionNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// Transaction records who owes whom for one converted request.
type Transaction struct {
	ID                          int64                     `json:"id"`
	RequestID                   int64                     `json:"requestId"`
	ReservationID               int64                     `json:"reservationId"`
	SenderTenantID              int64                     `json:"senderTenantId"`
	ReceiverTenantID            int64                     `json:"receiverTenantId"`
	ActivityID                  int64                     `json:"activityId"`
	GuestCount                  int                       `json:"guestCount"`
	UnitPrice                   decimal.Decimal           `json:"unitPrice"`
	Currency                    string                    `json:"currency"`
	TotalPrice                  decimal.Decimal           `json:"totalPrice"`
	PaymentCollectionType       request.PaymentCollection `json:"paymentCollectionType"`
	AmountCollectedBySender     decimal.Decimal           `json:"amountCollectedBySender"`
	Status                      Status                    `json:"status"`
	DeletionStatus              DeletionStatus            `json:"deletionStatus"`
	DeletionRequestedByTenantID *int64                    `json:"deletionRequestedByTenantId"`
	DeletionRejectionReason     *string                   `json:"deletionRejectionReason"`
	Version                     int                       `json:"-"`
	CreatedAt                   time.Time                 `json:"createdAt"`
	UpdatedAt                   time.Time                 `json:"updatedAt"`
}

// FromRequest builds the settlement entry for a converted request.
func FromRequest(r *request.Request, reservationID int64, unitPrice decimal.Decimal, currency string) *Transaction {
	return &Transaction{
		RequestID:               r.ID,
		ReservationID:           reservationID,
		SenderTenantID:          r.OriginTenantID,
		ReceiverTenantID:        r.OwnerTenantID,
		ActivityID:              r.ActivityID,
		GuestCount:              r.Guests,
		UnitPrice:               unitPrice,
		Currency:                currency,
		TotalPrice:              unitPrice.Mul(decimal.NewFromInt(int64(r.Guests))),
		PaymentCollectionType:   r.PaymentCollectionType,
		AmountCollectedBySender: r.AmountCollectedBySender,
		Status:                  StatusActive,
	}
}

// IsParty reports whether tenantID is sender or receiver.
func (t *Transaction) IsParty(tenantID int64) bool {
	return t.SenderTenantID == tenantID || t.ReceiverTenantID == tenantID
}

// Counterparty returns the other side for tenantID.
func (t *Transaction) Counterparty(tenantID int64) int64 {
	if t.SenderTenantID == tenantID {
		return t.ReceiverTenantID
	}
	return t.SenderTenantID
}

// Outstanding is what is still owed to the receiver after the sender's collection.
func (t *Transaction) Outstanding() decimal.Decimal {
	switch t.PaymentCollectionType {
	case request.CollectSenderFull:
		return decimal.Zero
	case request.CollectSenderPart:
		return t.TotalPrice.Sub(t.AmountCollectedBySender)
	default:
		return t.TotalPrice
	}
}

// SenderOwes is the money the sender collected on the receiver's behalf.
func (t *Transaction) SenderOwes() decimal.Decimal {
	if t.PaymentCollectionType == request.CollectReceiverFull {
		return decimal.Zero
	}
	return t.AmountCollectedBySender
}

// Balance summarises active transactions with one partner in one currency
// from the viewing tenant's perspective.
type Balance struct {
	PartnerTenantID   int64           `json:"partnerTenantId"`
	Currency          string          `json:"currency"`
	Transactions      int             `json:"transactions"`
	Receivable        decimal.Decimal `json:"receivable"`
	Payable           decimal.Decimal `json:"payable"`
	Net               decimal.Decimal `json:"net"`
	OutstandingToUs   decimal.Decimal `json:"outstandingToUs"`
	OutstandingToThem decimal.Decimal `json:"outstandingToThem"`
}

// Summarize aggregates active transactions per partner and currency.
// Retired transactions and those not involving viewer are skipped.
func Summarize(viewer int64, txs []Transaction) []Balance {
	type key struct {
		partner  int64
		currency string
	}
	acc := map[key]*Balance{}
	for i := range txs {
		t := &txs[i]
		if t.Status != StatusActive || !t.IsParty(viewer) {
			continue
		}
		k := key{partner: t.Counterparty(viewer), currency: t.Currency}
		b, ok := acc[k]
		if !ok {
			b = &Balance{
				PartnerTenantID: k.partner, Currency: k.currency,
				Receivable: decimal.Zero, Payable: decimal.Zero,
				OutstandingToUs: decimal.Zero, OutstandingToThem: decimal.Zero,
			}
			acc[k] = b
		}
		b.Transactions++
		owed := t.SenderOwes()
		if t.ReceiverTenantID == viewer {
			b.Receivable = b.Receivable.Add(owed)
			b.OutstandingToUs = b.OutstandingToUs.Add(t.Outstanding())
		} else {
			b.Payable = b.Payable.Add(owed)
			b.OutstandingToThem = b.OutstandingToThem.Add(t.Outstanding())
		}
	}

	out := make([]Balance, 0, len(acc))
	for _, b := range acc {
		b.Net = b.Receivable.Sub(b.Payable)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PartnerTenantID != out[j].PartnerTenantID {
			return out[i].PartnerTenantID < out[j].PartnerTenantID
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}
