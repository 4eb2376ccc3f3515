package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/TourBridge/internal/domain/fulfillment"
)

const dispatchColumns = `id, tenant_id, reservation_id, activity_id, to_char(record_date, 'YYYY-MM-DD'),
	customer_name, note, created_at`

func scanDispatch(row scannable) (fulfillment.DispatchRecord, error) {
	var d fulfillment.DispatchRecord
	err := row.Scan(&d.ID, &d.TenantID, &d.ReservationID, &d.ActivityID, &d.Date, &d.CustomerName, &d.Note, &d.CreatedAt)
	return d, err
}

func (s *Store) CreateDispatch(ctx context.Context, d *fulfillment.DispatchRecord) error {
	created, err := scanDispatch(s.pool.QueryRow(ctx,
		`INSERT INTO dispatch_records (tenant_id, reservation_id, activity_id, record_date, customer_name, note)
		 VALUES ($1, $2, $3, $4::date, $5, $6)
		 RETURNING `+dispatchColumns,
		d.TenantID, d.ReservationID, d.ActivityID, d.Date, d.CustomerName, d.Note))
	if err != nil {
		return fmt.Errorf("create dispatch record: %w", err)
	}
	*d = created
	return nil
}

func (s *Store) ListDispatches(ctx context.Context, tenantID int64, date string) ([]fulfillment.DispatchRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+dispatchColumns+` FROM dispatch_records
		 WHERE tenant_id = $1 AND record_date = $2::date ORDER BY id`, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("list dispatch records: %w", err)
	}
	defer rows.Close()

	var out []fulfillment.DispatchRecord
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispatch record: %w", err)
		}
		out = append(out, d)
	}
	return orEmpty(out), rows.Err()
}
