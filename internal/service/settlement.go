package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/TourBridge/internal/adapter/ws"
	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/settlement"
	"github.com/Strob0t/TourBridge/internal/port/database"
	"github.com/Strob0t/TourBridge/internal/port/messagequeue"
)

// TransactionResult is a transaction after a deletion protocol step.
type TransactionResult struct {
	Transaction *settlement.Transaction `json:"transaction"`
	Warnings    []string                `json:"warnings,omitempty"`
}

// SettlementService exposes the two-party transaction ledger and its
// mutual-consent deletion protocol.
type SettlementService struct {
	store  database.Store
	events *Events
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(store database.Store, events *Events) *SettlementService {
	return &SettlementService{store: store, events: events}
}

// Get returns a transaction visible to tenantID.
func (s *SettlementService) Get(ctx context.Context, tenantID, id int64) (*settlement.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsParty(tenantID) {
		return nil, fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

// List returns tenantID's transactions from both sides. Retired ones are
// only included on request.
func (s *SettlementService) List(ctx context.Context, tenantID int64, includeRetired bool) ([]settlement.Transaction, error) {
	return s.store.ListTransactions(ctx, tenantID, includeRetired)
}

// Balances summarises active transactions per partner and currency.
func (s *SettlementService) Balances(ctx context.Context, tenantID int64) ([]settlement.Balance, error) {
	txs, err := s.store.ListTransactions(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}
	return settlement.Summarize(tenantID, txs), nil
}

// RequestDeletion opens the deletion handshake.
func (s *SettlementService) RequestDeletion(ctx context.Context, tenantID, id int64) (*TransactionResult, error) {
	return s.step(ctx, tenantID, id, "deletion requested", func(t *settlement.Transaction) error {
		return t.RequestDeletion(tenantID)
	})
}

// ApproveDeletion retires the transaction. Only the counterparty of the
// requester may approve.
func (s *SettlementService) ApproveDeletion(ctx context.Context, tenantID, id int64) (*TransactionResult, error) {
	return s.step(ctx, tenantID, id, "deletion approved", func(t *settlement.Transaction) error {
		return t.ApproveDeletion(tenantID)
	})
}

// RejectDeletion keeps the transaction active and records the reason.
func (s *SettlementService) RejectDeletion(ctx context.Context, tenantID, id int64, reason string) (*TransactionResult, error) {
	return s.step(ctx, tenantID, id, "deletion rejected", func(t *settlement.Transaction) error {
		return t.RejectDeletion(tenantID, reason)
	})
}

// step applies one protocol move. Concurrent moves by the two parties are
// serialised by the version check; the loser gets ErrConflict.
func (s *SettlementService) step(ctx context.Context, tenantID, id int64, verb string, apply func(*settlement.Transaction) error) (*TransactionResult, error) {
	t, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(t); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "transaction "+verb, "transaction_id", t.ID, "deletion_status", t.DeletionStatus)

	var w warnings
	w.add(s.events.publish(ctx, messagequeue.SubjectSettlementChanged, messagequeue.SettlementChangedPayload{
		TransactionID: t.ID, ActorTenantID: tenantID, DeletionStatus: string(t.DeletionStatus),
	}))
	s.events.broadcast(ctx, ws.EventSettlementChanged, ws.SettlementChangedEvent{
		TransactionID: t.ID, Status: string(t.Status), DeletionStatus: string(t.DeletionStatus),
	}, t.SenderTenantID, t.ReceiverTenantID)
	return &TransactionResult{Transaction: t, Warnings: w}, nil
}
