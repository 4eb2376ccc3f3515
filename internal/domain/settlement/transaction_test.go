package settlement_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/request"
	"github.com/Strob0t/TourBridge/internal/domain/settlement"
)

const (
	receiver int64 = 1
	sender   int64 = 2
)

func newTx(collect request.PaymentCollection, collected int64) *settlement.Transaction {
	r := &request.Request{
		ID: 7, OwnerTenantID: receiver, OriginTenantID: sender, ActivityID: 3, Guests: 3,
		PaymentCollectionType: collect, AmountCollectedBySender: decimal.NewFromInt(collected),
	}
	return settlement.FromRequest(r, 11, decimal.NewFromInt(1000), "TRY")
}

func TestOutstanding(t *testing.T) {
	tests := []struct {
		name      string
		collect   request.PaymentCollection
		collected int64
		want      int64
	}{
		{"receiver collects everything", request.CollectReceiverFull, 0, 3000},
		{"sender collects everything", request.CollectSenderFull, 3000, 0},
		{"sender collects deposit", request.CollectSenderPart, 500, 2500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := newTx(tt.collect, tt.collected)
			if !tx.TotalPrice.Equal(decimal.NewFromInt(3000)) {
				t.Fatalf("expected total 3000, got %s", tx.TotalPrice)
			}
			if got := tx.Outstanding(); !got.Equal(decimal.NewFromInt(tt.want)) {
				t.Fatalf("expected outstanding %d, got %s", tt.want, got)
			}
		})
	}
}

func TestDeletionStatusJSON(t *testing.T) {
	deletionStatus := func(tx *settlement.Transaction) any {
		t.Helper()
		data, err := json.Marshal(tx)
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatal(err)
		}
		v, ok := m["deletionStatus"]
		if !ok {
			t.Fatal("deletionStatus missing from payload")
		}
		return v
	}

	tx := newTx(request.CollectReceiverFull, 0)
	if v := deletionStatus(tx); v != nil {
		t.Fatalf("expected null before any deletion request, got %#v", v)
	}
	if err := tx.RequestDeletion(sender); err != nil {
		t.Fatal(err)
	}
	if v := deletionStatus(tx); v != "pending" {
		t.Fatalf("expected pending, got %#v", v)
	}

	var back settlement.Transaction
	if err := json.Unmarshal([]byte(`{"deletionStatus":null}`), &back); err != nil {
		t.Fatal(err)
	}
	if back.DeletionStatus != settlement.DeletionNone {
		t.Fatalf("null must decode to no deletion, got %q", back.DeletionStatus)
	}
}

func TestFromRequestParties(t *testing.T) {
	tx := newTx(request.CollectReceiverFull, 0)
	if tx.SenderTenantID != sender || tx.ReceiverTenantID != receiver {
		t.Fatalf("unexpected parties %d -> %d", tx.SenderTenantID, tx.ReceiverTenantID)
	}
	if tx.Status != settlement.StatusActive || tx.DeletionStatus != settlement.DeletionNone {
		t.Fatalf("unexpected initial state %s/%q", tx.Status, tx.DeletionStatus)
	}
}

func TestDeletionRejectedThenApproved(t *testing.T) {
	tx := newTx(request.CollectSenderPart, 500)

	if err := tx.RequestDeletion(sender); err != nil {
		t.Fatalf("request deletion: %v", err)
	}
	if err := tx.ApproveDeletion(sender); !errors.Is(err, domain.ErrUnauthorizedParty) {
		t.Fatalf("expected self-approval to fail, got %v", err)
	}
	if err := tx.RequestDeletion(receiver); !errors.Is(err, domain.ErrDeletionConflict) {
		t.Fatalf("expected second pending request to conflict, got %v", err)
	}
	if err := tx.RejectDeletion(receiver, "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected blank reason to fail, got %v", err)
	}
	if err := tx.RejectDeletion(receiver, "customer still owes the balance"); err != nil {
		t.Fatalf("reject deletion: %v", err)
	}
	if tx.DeletionStatus != settlement.DeletionRejected || tx.Status != settlement.StatusActive {
		t.Fatalf("unexpected state after reject %q/%s", tx.DeletionStatus, tx.Status)
	}
	if tx.DeletionRejectionReason == nil || *tx.DeletionRejectionReason != "customer still owes the balance" {
		t.Fatalf("reason not recorded: %v", tx.DeletionRejectionReason)
	}

	if err := tx.RequestDeletion(sender); err != nil {
		t.Fatalf("second request deletion: %v", err)
	}
	if tx.DeletionRejectionReason != nil {
		t.Fatal("new request must clear the previous rejection reason")
	}
	if err := tx.ApproveDeletion(receiver); err != nil {
		t.Fatalf("approve deletion: %v", err)
	}
	if tx.DeletionStatus != settlement.DeletionApproved || tx.Status != settlement.StatusRetired {
		t.Fatalf("unexpected state after approve %q/%s", tx.DeletionStatus, tx.Status)
	}

	var te *domain.TransitionError
	if err := tx.RequestDeletion(sender); !errors.As(err, &te) {
		t.Fatalf("expected transition error on retired transaction, got %v", err)
	}
}

func TestDeletionOutsider(t *testing.T) {
	tx := newTx(request.CollectReceiverFull, 0)
	if err := tx.RequestDeletion(99); !errors.Is(err, domain.ErrUnauthorizedParty) {
		t.Fatalf("expected outsider to be refused, got %v", err)
	}
	if err := tx.ApproveDeletion(receiver); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected approve without pending request to fail, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	a := *newTx(request.CollectSenderPart, 500) // sender holds 500 of receiver's money
	b := *newTx(request.CollectReceiverFull, 0)
	c := *newTx(request.CollectSenderFull, 3000)
	c.Status = settlement.StatusRetired

	// one transaction in the other direction
	d := *newTx(request.CollectSenderFull, 3000)
	d.SenderTenantID, d.ReceiverTenantID = receiver, sender

	balances := settlement.Summarize(receiver, []settlement.Transaction{a, b, c, d})
	if len(balances) != 1 {
		t.Fatalf("expected one balance line, got %d", len(balances))
	}
	got := balances[0]
	if got.PartnerTenantID != sender || got.Transactions != 3 {
		t.Fatalf("unexpected balance %+v", got)
	}
	if !got.Receivable.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected receivable 500, got %s", got.Receivable)
	}
	if !got.Payable.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("expected payable 3000, got %s", got.Payable)
	}
	if !got.Net.Equal(decimal.NewFromInt(-2500)) {
		t.Errorf("expected net -2500, got %s", got.Net)
	}
	if !got.OutstandingToUs.Equal(decimal.NewFromInt(5500)) {
		t.Errorf("expected outstanding to us 5500, got %s", got.OutstandingToUs)
	}
}
