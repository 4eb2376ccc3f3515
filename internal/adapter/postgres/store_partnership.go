package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/partnership"
	"github.com/Strob0t/TourBridge/internal/port/database"
)

const partnershipColumns = `id, requester_tenant_id, partner_tenant_id, status, version, created_at, updated_at`

func scanPartnership(row scannable) (partnership.Partnership, error) {
	var p partnership.Partnership
	var status string
	err := row.Scan(&p.ID, &p.RequesterTenantID, &p.PartnerTenantID, &status, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	p.Status = partnership.Status(status)
	return p, err
}

func (s *Store) CreatePartnership(ctx context.Context, requesterID, partnerID int64) (*partnership.Partnership, error) {
	p, err := scanPartnership(s.pool.QueryRow(ctx,
		`INSERT INTO partnerships (requester_tenant_id, partner_tenant_id) VALUES ($1, $2)
		 RETURNING `+partnershipColumns, requesterID, partnerID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create partnership %d-%d: %w", requesterID, partnerID, domain.ErrConflict)
		}
		return nil, fmt.Errorf("create partnership: %w", err)
	}
	return &p, nil
}

func (s *Store) GetPartnership(ctx context.Context, id int64) (*partnership.Partnership, error) {
	p, err := scanPartnership(s.pool.QueryRow(ctx,
		`SELECT `+partnershipColumns+` FROM partnerships WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get partnership %d", id)
	}
	return &p, nil
}

func (s *Store) FindPartnership(ctx context.Context, tenantA, tenantB int64) (*partnership.Partnership, error) {
	p, err := scanPartnership(s.pool.QueryRow(ctx,
		`SELECT `+partnershipColumns+` FROM partnerships
		 WHERE LEAST(requester_tenant_id, partner_tenant_id) = LEAST($1::bigint, $2::bigint)
		   AND GREATEST(requester_tenant_id, partner_tenant_id) = GREATEST($1::bigint, $2::bigint)`,
		tenantA, tenantB))
	if err != nil {
		return nil, notFoundWrap(err, "find partnership %d-%d", tenantA, tenantB)
	}
	return &p, nil
}

func (s *Store) ListPartnerships(ctx context.Context, tenantID int64) ([]partnership.Partnership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+partnershipColumns+` FROM partnerships
		 WHERE requester_tenant_id = $1 OR partner_tenant_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list partnerships: %w", err)
	}
	defer rows.Close()

	var out []partnership.Partnership
	for rows.Next() {
		p, err := scanPartnership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan partnership: %w", err)
		}
		out = append(out, p)
	}
	return orEmpty(out), rows.Err()
}

func (s *Store) UpdatePartnership(ctx context.Context, p *partnership.Partnership) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE partnerships
		 SET requester_tenant_id = $2, partner_tenant_id = $3, status = $4, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $5`,
		p.ID, p.RequesterTenantID, p.PartnerTenantID, string(p.Status), p.Version)
	if err := execExpectOne(tag, err, domain.ErrConflict, "update partnership %d", p.ID); err != nil {
		return err
	}
	p.Version++
	return nil
}

// --- Shares ---

const shareColumns = `sh.activity_id, sh.partnership_id, sh.owner_tenant_id, sh.partner_unit_price::text,
	COALESCE(sh.currency, ''), sh.created_at`

func scanShareInto(sh *partnership.Share, price **string, dest ...any) []any {
	return append([]any{&sh.ActivityID, &sh.PartnershipID, &sh.OwnerTenantID, price, &sh.Currency, &sh.CreatedAt}, dest...)
}

func finishShare(sh *partnership.Share, price *string) error {
	if price == nil {
		return nil
	}
	p, err := money(*price)
	if err != nil {
		return err
	}
	sh.PartnerUnitPrice = &p
	return nil
}

func priceArg(p *decimal.Decimal) *string {
	if p == nil {
		return nil
	}
	v := p.String()
	return &v
}

func (s *Store) UpsertShare(ctx context.Context, sh *partnership.Share) error {
	var price *string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO activity_shares AS sh (activity_id, partnership_id, owner_tenant_id, partner_unit_price, currency)
		 VALUES ($1, $2, $3, $4::numeric, $5)
		 ON CONFLICT (activity_id, partnership_id)
		 DO UPDATE SET partner_unit_price = EXCLUDED.partner_unit_price, currency = EXCLUDED.currency
		 RETURNING `+shareColumns,
		sh.ActivityID, sh.PartnershipID, sh.OwnerTenantID, priceArg(sh.PartnerUnitPrice), nullIfEmpty(sh.Currency),
	).Scan(scanShareInto(sh, &price)...)
	if err != nil {
		return fmt.Errorf("upsert share: %w", err)
	}
	sh.PartnerUnitPrice = nil
	return finishShare(sh, price)
}

func (s *Store) DeleteShare(ctx context.Context, activityID, partnershipID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM activity_shares WHERE activity_id = $1 AND partnership_id = $2`, activityID, partnershipID)
	return execExpectOne(tag, err, domain.ErrNotFound, "delete share %d/%d", activityID, partnershipID)
}

func (s *Store) ListShares(ctx context.Context, partnershipID int64) ([]partnership.Share, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+shareColumns+` FROM activity_shares sh WHERE sh.partnership_id = $1 ORDER BY sh.activity_id`,
		partnershipID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	var out []partnership.Share
	for rows.Next() {
		var sh partnership.Share
		var price *string
		if err := rows.Scan(scanShareInto(&sh, &price)...); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		if err := finishShare(&sh, price); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return orEmpty(out), rows.Err()
}

// visibleSharesFrom joins shares to active partnerships that include the viewer.
const visibleSharesFrom = `
	FROM activity_shares sh
	JOIN partnerships p ON p.id = sh.partnership_id
	JOIN activities a ON a.id = sh.activity_id
	JOIN tenants t ON t.id = sh.owner_tenant_id
	WHERE p.status = 'active'
	  AND (p.requester_tenant_id = $1 OR p.partner_tenant_id = $1)
	  AND sh.owner_tenant_id <> $1`

func (s *Store) ListVisibleShares(ctx context.Context, viewerID int64) ([]database.VisibleShare, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+shareColumns+`, a.id, a.tenant_id, a.name, a.unit_price::text, a.currency, a.default_capacity, a.created_at, t.name
		 `+visibleSharesFrom+`
		 ORDER BY t.name, a.name`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list visible shares: %w", err)
	}
	defer rows.Close()

	var out []database.VisibleShare
	for rows.Next() {
		var v database.VisibleShare
		var price *string
		var unit string
		a := &v.Activity
		if err := rows.Scan(scanShareInto(&v.Share, &price,
			&a.ID, &a.TenantID, &a.Name, &unit, &a.Currency, &a.DefaultCapacity, &a.CreatedAt, &v.OwnerName)...); err != nil {
			return nil, fmt.Errorf("scan visible share: %w", err)
		}
		if err := finishShare(&v.Share, price); err != nil {
			return nil, err
		}
		if a.UnitPrice, err = money(unit); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return orEmpty(out), rows.Err()
}

func (s *Store) FindVisibleShare(ctx context.Context, activityID, viewerID int64) (*partnership.Share, error) {
	var sh partnership.Share
	var price *string
	err := s.pool.QueryRow(ctx,
		`SELECT `+shareColumns+visibleSharesFrom+` AND sh.activity_id = $2 LIMIT 1`,
		viewerID, activityID).Scan(scanShareInto(&sh, &price)...)
	if err != nil {
		return nil, notFoundWrap(err, "find share of activity %d for tenant %d", activityID, viewerID)
	}
	if err := finishShare(&sh, price); err != nil {
		return nil, err
	}
	return &sh, nil
}
