package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/request"
	"github.com/Strob0t/TourBridge/internal/port/database"
)

const requestColumns = `id, owner_tenant_id, origin_tenant_id, origin_kind, activity_id,
	to_char(slot_date, 'YYYY-MM-DD'), slot_time, customer_name, customer_phone, guests, notes, status,
	payment_collection_type, amount_collected_by_sender::text, reservation_id, process_notes,
	version, created_at, updated_at`

func scanRequest(row scannable) (request.Request, error) {
	var r request.Request
	var originKind, status, collection, collected string
	err := row.Scan(&r.ID, &r.OwnerTenantID, &r.OriginTenantID, &originKind, &r.ActivityID,
		&r.Date, &r.Time, &r.CustomerName, &r.CustomerPhone, &r.Guests, &r.Notes, &status,
		&collection, &collected, &r.ReservationID, &r.ProcessNotes,
		&r.Version, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.OriginKind = request.OriginKind(originKind)
	r.Status = request.Status(status)
	r.PaymentCollectionType = request.PaymentCollection(collection)
	if r.AmountCollectedBySender, err = money(collected); err != nil {
		return r, err
	}
	r.RequesterType = r.Classify()
	return r, nil
}

func (s *Store) CreateRequest(ctx context.Context, r *request.Request) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO reservation_requests
		   (owner_tenant_id, origin_tenant_id, origin_kind, activity_id, slot_date, slot_time,
		    customer_name, customer_phone, guests, notes, status, payment_collection_type, amount_collected_by_sender)
		 VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12, $13::numeric)
		 RETURNING `+requestColumns,
		r.OwnerTenantID, r.OriginTenantID, string(r.OriginKind), r.ActivityID, r.Date, r.Time,
		r.CustomerName, r.CustomerPhone, r.Guests, r.Notes, string(r.Status),
		string(r.PaymentCollectionType), r.AmountCollectedBySender.String())

	created, err := scanRequest(row)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	*r = created
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id int64) (*request.Request, error) {
	r, err := scanRequest(s.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM reservation_requests WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get request %d", id)
	}
	return &r, nil
}

func (s *Store) ListRequests(ctx context.Context, f database.RequestFilter) ([]request.Request, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.OwnerTenantID != 0 {
		add("owner_tenant_id = $%d", f.OwnerTenantID)
	}
	if f.OriginTenantID != 0 {
		add("origin_tenant_id = $%d", f.OriginTenantID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if len(where) == 0 {
		return nil, domain.Validationf("request filter needs a tenant")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+requestColumns+` FROM reservation_requests
		 WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []request.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, r)
	}
	return orEmpty(out), rows.Err()
}

func (s *Store) UpdateRequest(ctx context.Context, r *request.Request) error {
	return updateRequest(ctx, s.pool, r)
}

// updateRequest writes the mutable fields under an optimistic version check.
func updateRequest(ctx context.Context, q querier, r *request.Request) error {
	tag, err := q.Exec(ctx,
		`UPDATE reservation_requests
		 SET status = $2, reservation_id = $3, process_notes = $4, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $5`,
		r.ID, string(r.Status), r.ReservationID, r.ProcessNotes, r.Version)
	if err := execExpectOne(tag, err, domain.ErrConflict, "update request %d", r.ID); err != nil {
		return err
	}
	r.Version++
	return nil
}
