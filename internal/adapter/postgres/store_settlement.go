package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/request"
	"github.com/Strob0t/TourBridge/internal/domain/settlement"
)

const transactionColumns = `id, request_id, reservation_id, sender_tenant_id, receiver_tenant_id, activity_id,
	guest_count, unit_price::text, currency, total_price::text, payment_collection_type,
	amount_collected_by_sender::text, status, deletion_status, deletion_requested_by_tenant_id,
	deletion_rejection_reason, version, created_at, updated_at`

func scanTransaction(row scannable) (settlement.Transaction, error) {
	var t settlement.Transaction
	var unit, total, collected, collection, status, deletion string
	err := row.Scan(&t.ID, &t.RequestID, &t.ReservationID, &t.SenderTenantID, &t.ReceiverTenantID, &t.ActivityID,
		&t.GuestCount, &unit, &t.Currency, &total, &collection,
		&collected, &status, &deletion, &t.DeletionRequestedByTenantID,
		&t.DeletionRejectionReason, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.PaymentCollectionType = request.PaymentCollection(collection)
	t.Status = settlement.Status(status)
	t.DeletionStatus = settlement.DeletionStatus(deletion)
	if t.UnitPrice, err = money(unit); err != nil {
		return t, err
	}
	if t.TotalPrice, err = money(total); err != nil {
		return t, err
	}
	if t.AmountCollectedBySender, err = money(collected); err != nil {
		return t, err
	}
	return t, nil
}

func insertTransaction(ctx context.Context, q querier, t *settlement.Transaction) error {
	created, err := scanTransaction(q.QueryRow(ctx,
		`INSERT INTO partner_transactions
		   (request_id, reservation_id, sender_tenant_id, receiver_tenant_id, activity_id, guest_count,
		    unit_price, currency, total_price, payment_collection_type, amount_collected_by_sender, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9::numeric, $10, $11::numeric, $12)
		 RETURNING `+transactionColumns,
		t.RequestID, t.ReservationID, t.SenderTenantID, t.ReceiverTenantID, t.ActivityID, t.GuestCount,
		t.UnitPrice.String(), t.Currency, t.TotalPrice.String(), string(t.PaymentCollectionType),
		t.AmountCollectedBySender.String(), string(t.Status)))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert transaction for request %d: %w", t.RequestID, domain.ErrConflict)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	*t = created
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*settlement.Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM partner_transactions WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get transaction %d", id)
	}
	return &t, nil
}

func (s *Store) ListTransactions(ctx context.Context, tenantID int64, includeRetired bool) ([]settlement.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM partner_transactions
		 WHERE (sender_tenant_id = $1 OR receiver_tenant_id = $1) AND ($2 OR status = 'active')
		 ORDER BY created_at DESC`, tenantID, includeRetired)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []settlement.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return orEmpty(out), rows.Err()
}

// UpdateTransaction persists a deletion protocol step. A concurrent step by
// the other party makes the version check fail with domain.ErrConflict.
func (s *Store) UpdateTransaction(ctx context.Context, t *settlement.Transaction) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE partner_transactions
		 SET status = $2, deletion_status = $3, deletion_requested_by_tenant_id = $4,
		     deletion_rejection_reason = $5, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $6`,
		t.ID, string(t.Status), string(t.DeletionStatus), t.DeletionRequestedByTenantID,
		t.DeletionRejectionReason, t.Version)
	if err := execExpectOne(tag, err, domain.ErrConflict, "update transaction %d", t.ID); err != nil {
		return err
	}
	t.Version++
	return nil
}
