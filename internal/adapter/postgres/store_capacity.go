package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/capacity"
	"github.com/Strob0t/TourBridge/internal/domain/request"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
	"github.com/Strob0t/TourBridge/internal/domain/settlement"
	"github.com/Strob0t/TourBridge/internal/port/database"
)

// bookedExpr derives the booked count of slot alias s: confirmed
// reservations of every source plus approved requests still holding places.
const bookedExpr = `
	COALESCE((SELECT SUM(r.guests) FROM reservations r
	           WHERE r.tenant_id = s.tenant_id AND r.activity_id = s.activity_id
	             AND r.slot_date = s.slot_date AND r.slot_time = s.slot_time
	             AND r.status = 'confirmed'), 0)
	+ COALESCE((SELECT SUM(q.guests) FROM reservation_requests q
	           WHERE q.owner_tenant_id = s.tenant_id AND q.activity_id = s.activity_id
	             AND q.slot_date = s.slot_date AND q.slot_time = s.slot_time
	             AND q.status = 'approved'), 0)`

func (s *Store) ListSlots(ctx context.Context, tenantID, activityID int64, from, to string) ([]capacity.Slot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.tenant_id, s.activity_id, to_char(s.slot_date, 'YYYY-MM-DD'), s.slot_time, s.total_slots, s.version,
		        `+bookedExpr+`
		 FROM capacity_slots s
		 WHERE s.tenant_id = $1 AND s.activity_id = $2 AND s.slot_date BETWEEN $3::date AND $4::date
		 ORDER BY s.slot_date, s.slot_time`,
		tenantID, activityID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []capacity.Slot
	for rows.Next() {
		var sl capacity.Slot
		if err := rows.Scan(&sl.TenantID, &sl.ActivityID, &sl.Date, &sl.Time, &sl.TotalSlots, &sl.Version, &sl.BookedSlots); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, sl)
	}
	return orEmpty(slots), rows.Err()
}

// InSlotTx locks the slot row for key, materialising it from the activity's
// default capacity when absent, and runs fn inside the same transaction.
// Concurrent callers on the same key are serialised by the row lock; each
// sees the booked count committed by the previous one.
func (s *Store) InSlotTx(ctx context.Context, key capacity.Key, fn func(tx database.SlotTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin slot tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx,
		`INSERT INTO capacity_slots (tenant_id, activity_id, slot_date, slot_time, total_slots)
		 SELECT tenant_id, id, $3::date, $4, default_capacity FROM activities WHERE id = $2 AND tenant_id = $1
		 ON CONFLICT DO NOTHING`,
		key.TenantID, key.ActivityID, key.Date, key.Time); err != nil {
		return fmt.Errorf("materialise slot %s: %w", key, err)
	}

	st := &slotTx{tx: tx, slot: capacity.Slot{Key: key}}
	err = tx.QueryRow(ctx,
		`SELECT s.total_slots, s.version FROM capacity_slots s
		 WHERE s.tenant_id = $1 AND s.activity_id = $2 AND s.slot_date = $3::date AND s.slot_time = $4
		 FOR UPDATE`,
		key.TenantID, key.ActivityID, key.Date, key.Time).Scan(&st.slot.TotalSlots, &st.slot.Version)
	if err != nil {
		return notFoundWrap(err, "lock slot %s", key)
	}

	// Read after the lock so the count reflects every committed competitor.
	err = tx.QueryRow(ctx,
		`SELECT `+bookedExpr+` FROM capacity_slots s
		 WHERE s.tenant_id = $1 AND s.activity_id = $2 AND s.slot_date = $3::date AND s.slot_time = $4`,
		key.TenantID, key.ActivityID, key.Date, key.Time).Scan(&st.slot.BookedSlots)
	if err != nil {
		return fmt.Errorf("count booked %s: %w", key, err)
	}

	if err := fn(st); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("commit slot tx %s: %w", key, domain.ErrConflict)
		}
		return fmt.Errorf("commit slot tx %s: %w", key, err)
	}
	return nil
}

// slotTx implements database.SlotTx on a pgx transaction.
type slotTx struct {
	tx   pgx.Tx
	slot capacity.Slot
}

func (t *slotTx) Slot() capacity.Slot { return t.slot }

func (t *slotTx) SetTotal(ctx context.Context, total int) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE capacity_slots SET total_slots = $5, version = version + 1
		 WHERE tenant_id = $1 AND activity_id = $2 AND slot_date = $3::date AND slot_time = $4`,
		t.slot.TenantID, t.slot.ActivityID, t.slot.Date, t.slot.Time, total)
	if err := execExpectOne(tag, err, domain.ErrNotFound, "set slot total %s", t.slot.Key); err != nil {
		return err
	}
	t.slot.TotalSlots = total
	t.slot.Version++
	return nil
}

func (t *slotTx) LockRequest(ctx context.Context, id int64) (*request.Request, error) {
	r, err := scanRequest(t.tx.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM reservation_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundWrap(err, "lock request %d", id)
	}
	return &r, nil
}

func (t *slotTx) UpdateRequest(ctx context.Context, r *request.Request) error {
	return updateRequest(ctx, t.tx, r)
}

func (t *slotTx) LockReservation(ctx context.Context, id int64) (*reservation.Reservation, error) {
	r, err := scanReservation(t.tx.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundWrap(err, "lock reservation %d", id)
	}
	return &r, nil
}

func (t *slotTx) InsertReservation(ctx context.Context, r *reservation.Reservation) error {
	return insertReservation(ctx, t.tx, r)
}

func (t *slotTx) UpdateReservationStatus(ctx context.Context, id int64, status reservation.Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE reservations SET status = $2 WHERE id = $1`, id, string(status))
	return execExpectOne(tag, err, domain.ErrNotFound, "update reservation %d", id)
}

func (t *slotTx) FindReservationByExternalRef(ctx context.Context, tenantID int64, ref string) (*reservation.Reservation, error) {
	r, err := scanReservation(t.tx.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE tenant_id = $1 AND external_ref = $2`, tenantID, ref))
	if err != nil {
		return nil, notFoundWrap(err, "find reservation by ref %s", ref)
	}
	return &r, nil
}

func (t *slotTx) InsertTransaction(ctx context.Context, tr *settlement.Transaction) error {
	return insertTransaction(ctx, t.tx, tr)
}
