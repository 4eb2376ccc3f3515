package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/reservation"
)

const reservationColumns = `id, tenant_id, activity_id, to_char(slot_date, 'YYYY-MM-DD'), slot_time,
	customer_name, customer_phone, guests, status, source, request_id, COALESCE(external_ref, ''),
	tracking_token, unit_price::text, currency, total_price::text, created_at`

func scanReservation(row scannable) (reservation.Reservation, error) {
	var r reservation.Reservation
	var status, source, unit, total string
	err := row.Scan(&r.ID, &r.TenantID, &r.ActivityID, &r.Date, &r.Time,
		&r.CustomerName, &r.CustomerPhone, &r.Guests, &status, &source, &r.RequestID, &r.ExternalRef,
		&r.TrackingToken, &unit, &r.Currency, &total, &r.CreatedAt)
	if err != nil {
		return r, err
	}
	r.Status = reservation.Status(status)
	r.Source = reservation.Source(source)
	if r.UnitPrice, err = money(unit); err != nil {
		return r, err
	}
	if r.TotalPrice, err = money(total); err != nil {
		return r, err
	}
	return r, nil
}

// insertReservation creates r and fills its generated fields. A duplicate
// request_id or external_ref surfaces as domain.ErrConflict.
func insertReservation(ctx context.Context, q querier, r *reservation.Reservation) error {
	created, err := scanReservation(q.QueryRow(ctx,
		`INSERT INTO reservations
		   (tenant_id, activity_id, slot_date, slot_time, customer_name, customer_phone, guests,
		    status, source, request_id, external_ref, tracking_token, unit_price, currency, total_price)
		 VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::numeric, $14, $15::numeric)
		 RETURNING `+reservationColumns,
		r.TenantID, r.ActivityID, r.Date, r.Time, r.CustomerName, r.CustomerPhone, r.Guests,
		string(r.Status), string(r.Source), r.RequestID, nullIfEmpty(r.ExternalRef), r.TrackingToken,
		r.UnitPrice.String(), r.Currency, r.TotalPrice.String()))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert reservation: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	*r = created
	return nil
}

func (s *Store) GetReservation(ctx context.Context, id int64) (*reservation.Reservation, error) {
	r, err := scanReservation(s.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get reservation %d", id)
	}
	return &r, nil
}

func (s *Store) GetReservationByToken(ctx context.Context, token string) (*reservation.Reservation, error) {
	r, err := scanReservation(s.pool.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE tracking_token = $1`, token))
	if err != nil {
		return nil, notFoundWrap(err, "get reservation by token")
	}
	return &r, nil
}

func (s *Store) ListReservations(ctx context.Context, tenantID int64, from, to string) ([]reservation.Reservation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE tenant_id = $1 AND slot_date BETWEEN $2::date AND $3::date
		 ORDER BY slot_date, slot_time, id`, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []reservation.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return orEmpty(out), rows.Err()
}
