package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/tenant"
)

// --- Tenant CRUD ---

const tenantColumns = `id, name, slug, contact_phone, enabled, created_at, updated_at`

func scanTenant(row scannable) (tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.ContactPhone, &t.Enabled, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`INSERT INTO tenants (name, slug, contact_phone) VALUES ($1, $2, $3)
		 RETURNING `+tenantColumns,
		req.Name, req.Slug, req.ContactPhone))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create tenant %s: %w", req.Slug, domain.ErrConflict)
		}
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return &t, nil
}

func (s *Store) GetTenant(ctx context.Context, id int64) (*tenant.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get tenant %d", id)
	}
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return orEmpty(tenants), rows.Err()
}

func (s *Store) UpdateTenant(ctx context.Context, id int64, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`UPDATE tenants SET
			name = COALESCE(NULLIF($2, ''), name),
			contact_phone = COALESCE($3, contact_phone),
			enabled = COALESCE($4, enabled),
			updated_at = now()
		 WHERE id = $1
		 RETURNING `+tenantColumns,
		id, req.Name, req.ContactPhone, req.Enabled))
	if err != nil {
		return nil, notFoundWrap(err, "update tenant %d", id)
	}
	return &t, nil
}

// --- API keys ---

const apiKeyColumns = `id, tenant_id, prefix, key_hash, created_at, revoked_at`

func scanAPIKey(row scannable) (tenant.APIKey, error) {
	var k tenant.APIKey
	err := row.Scan(&k.ID, &k.TenantID, &k.Prefix, &k.Hash, &k.CreatedAt, &k.RevokedAt)
	return k, err
}

func (s *Store) CreateAPIKey(ctx context.Context, tenantID int64, prefix, hash string) (*tenant.APIKey, error) {
	k, err := scanAPIKey(s.pool.QueryRow(ctx,
		`INSERT INTO api_keys (tenant_id, prefix, key_hash) VALUES ($1, $2, $3)
		 RETURNING `+apiKeyColumns,
		tenantID, prefix, hash))
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return &k, nil
}

func (s *Store) GetAPIKeyByPrefix(ctx context.Context, prefix string) (*tenant.APIKey, error) {
	k, err := scanAPIKey(s.pool.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE prefix = $1`, prefix))
	if err != nil {
		return nil, notFoundWrap(err, "get api key")
	}
	return &k, nil
}

func (s *Store) RevokeAPIKey(ctx context.Context, tenantID, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND tenant_id = $2 AND revoked_at IS NULL`,
		id, tenantID)
	return execExpectOne(tag, err, domain.ErrNotFound, "revoke api key %d", id)
}
