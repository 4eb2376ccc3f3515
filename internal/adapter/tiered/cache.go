// Package tiered implements a two-level (L1 + L2) cache adapter.
package tiered

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/TourBridge/internal/port/cache"
)

// Cache combines an L1 (in-process) and an optional L2 (shared) cache.
// Get checks L1 first, then L2, backfilling L1 on an L2 hit. L2 read and
// write failures degrade to a miss so lookups keep working without NATS;
// only deletes report L2 errors because a missed invalidation serves stale data.
type Cache struct {
	l1       cache.Cache
	l2       cache.Cache
	l1Expire time.Duration

	group singleflight.Group
	gen   atomic.Uint64
}

// New creates a tiered cache. l2 may be nil. l1Expire controls how long L2
// backfill entries live in L1.
func New(l1, l2 cache.Cache, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire}
}

// Get checks L1, then L2. On L2 hit, backfills L1.
func (c *Cache) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := c.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}
	if c.l2 == nil {
		return nil, false, nil
	}

	val, found, err = c.l2.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "l2 cache get failed", "key", key, "error", err)
		return nil, false, nil
	}
	if found {
		_ = c.l1.Set(ctx, key, val, c.l1Expire)
		return val, true, nil
	}
	return nil, false, nil
}

// Set writes to both L1 and L2.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, value, ttl); err != nil {
			slog.WarnContext(ctx, "l2 cache set failed", "key", key, "error", err)
		}
	}
	return nil
}

// Delete removes from L2 and then L1, and discards fills already in flight.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.gen.Add(1)
	c.group.Forget(key)
	var l2Err error
	if c.l2 != nil {
		l2Err = c.l2.Delete(ctx, key)
	}
	return errors.Join(l2Err, c.l1.Delete(ctx, key))
}

// Fetch returns the cached value for key or calls load once for all
// concurrent callers and caches its result for ttl. A Delete that lands
// while load runs keeps the loaded value from being cached.
func (c *Cache) Fetch(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if val, ok, err := c.Get(ctx, key); err == nil && ok {
		return val, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		gen := c.gen.Load()
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if c.gen.Load() == gen {
			if err := c.Set(ctx, key, val, ttl); err != nil {
				slog.WarnContext(ctx, "cache fill failed", "key", key, "error", err)
			}
		}
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
