package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Strob0t/TourBridge/internal/config"
	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/tenant"
	"github.com/Strob0t/TourBridge/internal/middleware"
	"github.com/Strob0t/TourBridge/internal/port/cache"
	"github.com/Strob0t/TourBridge/internal/port/database"
)

// TenantService manages tenants and their API keys.
type TenantService struct {
	store    database.Store
	keys     cache.Cache
	cost     int
	cacheTTL time.Duration
}

// NewTenantService creates a new TenantService. keys caches verified API keys
// so bcrypt runs once per key and TTL; it may be nil.
func NewTenantService(store database.Store, keys cache.Cache, cfg config.Auth) *TenantService {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &TenantService{store: store, keys: keys, cost: cost, cacheTTL: cfg.KeyCacheTTL}
}

// Create validates and creates a new tenant.
func (s *TenantService) Create(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.store.CreateTenant(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "tenant created", "tenant_id", t.ID, "slug", t.Slug)
	return t, nil
}

// Get returns a tenant by ID.
func (s *TenantService) Get(ctx context.Context, id int64) (*tenant.Tenant, error) {
	return s.store.GetTenant(ctx, id)
}

// List returns all tenants.
func (s *TenantService) List(ctx context.Context) ([]tenant.Tenant, error) {
	return s.store.ListTenants(ctx)
}

// Update modifies name, contact phone or enabled flag of a tenant.
func (s *TenantService) Update(ctx context.Context, id int64, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	return s.store.UpdateTenant(ctx, id, req)
}

// IssueKey generates a new API key for tenantID. The secret is only returned here.
func (s *TenantService) IssueKey(ctx context.Context, tenantID int64) (*tenant.IssuedKey, error) {
	t, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !t.Enabled {
		return nil, domain.Validationf("tenant %d is disabled", tenantID)
	}
	plain, prefix, hash, err := tenant.GenerateKey(s.cost)
	if err != nil {
		return nil, err
	}
	k, err := s.store.CreateAPIKey(ctx, tenantID, prefix, hash)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "api key issued", "tenant_id", tenantID, "key_id", k.ID, "prefix", prefix)
	return &tenant.IssuedKey{Key: *k, Secret: plain}, nil
}

// RevokeKey revokes one of tenantID's keys. Cached verifications expire with
// the key cache TTL.
func (s *TenantService) RevokeKey(ctx context.Context, tenantID, keyID int64) error {
	if err := s.store.RevokeAPIKey(ctx, tenantID, keyID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "api key revoked", "tenant_id", tenantID, "key_id", keyID)
	return nil
}

// VerifyKey resolves a presented key to its stored record. The tenant must
// exist and be enabled.
func (s *TenantService) VerifyKey(ctx context.Context, plain string) (*tenant.APIKey, error) {
	prefix, secret, ok := tenant.SplitKey(plain)
	if !ok {
		return nil, middleware.ErrInvalidKey
	}

	cacheKey := keyCacheKey(prefix, secret)
	if k, ok := s.cachedKey(ctx, cacheKey); ok {
		return k, nil
	}

	k, err := s.store.GetAPIKeyByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, middleware.ErrInvalidKey
		}
		return nil, fmt.Errorf("lookup api key: %w", err)
	}
	if !k.Verify(secret) {
		return nil, middleware.ErrInvalidKey
	}
	t, err := s.store.GetTenant(ctx, k.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, middleware.ErrInvalidKey
		}
		return nil, fmt.Errorf("lookup key tenant: %w", err)
	}
	if !t.Enabled {
		return nil, middleware.ErrInvalidKey
	}

	s.storeKey(ctx, cacheKey, k)
	return k, nil
}

func (s *TenantService) cachedKey(ctx context.Context, key string) (*tenant.APIKey, bool) {
	if s.keys == nil {
		return nil, false
	}
	data, ok, err := s.keys.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var k tenant.APIKey
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, false
	}
	return &k, true
}

func (s *TenantService) storeKey(ctx context.Context, key string, k *tenant.APIKey) {
	if s.keys == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(k)
	if err != nil {
		return
	}
	if err := s.keys.Set(ctx, key, data, s.cacheTTL); err != nil {
		slog.WarnContext(ctx, "cache api key", "error", err)
	}
}

// keyCacheKey never contains the secret itself.
func keyCacheKey(prefix, secret string) string {
	sum := sha256.Sum256([]byte(prefix + "." + secret))
	return "apikey:" + hex.EncodeToString(sum[:])
}
