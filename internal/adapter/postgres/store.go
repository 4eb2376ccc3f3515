package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/TourBridge/internal/domain/activity"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks database connectivity for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Activities ---

const activityColumns = `id, tenant_id, name, unit_price::text, currency, default_capacity, created_at`

func scanActivity(row scannable) (activity.Activity, error) {
	var a activity.Activity
	var price string
	if err := row.Scan(&a.ID, &a.TenantID, &a.Name, &price, &a.Currency, &a.DefaultCapacity, &a.CreatedAt); err != nil {
		return a, err
	}
	p, err := money(price)
	if err != nil {
		return a, err
	}
	a.UnitPrice = p
	return a, nil
}

func (s *Store) CreateActivity(ctx context.Context, tenantID int64, req activity.CreateRequest) (*activity.Activity, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO activities (tenant_id, name, unit_price, currency, default_capacity)
		 VALUES ($1, $2, $3::numeric, $4, $5)
		 RETURNING `+activityColumns,
		tenantID, req.Name, req.UnitPrice.String(), req.Currency, req.DefaultCapacity)

	a, err := scanActivity(row)
	if err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	return &a, nil
}

func (s *Store) GetActivity(ctx context.Context, id int64) (*activity.Activity, error) {
	a, err := scanActivity(s.pool.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get activity %d", id)
	}
	return &a, nil
}

func (s *Store) ListActivities(ctx context.Context, tenantID int64) ([]activity.Activity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []activity.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return orEmpty(out), rows.Err()
}
