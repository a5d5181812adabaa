package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GTDGit/tripquote_api/internal/models"
)

// RateCache caches the resolved rate of each product's current approved
// version. The approval path overwrites entries; readers and the warm worker
// only fill absent keys, so a stale read can never clobber a fresh approval.
type RateCache struct {
	store Store
	ttl   time.Duration
}

// NewRateCache creates a new RateCache.
func NewRateCache(store Store, ttl time.Duration) *RateCache {
	return &RateCache{store: store, ttl: ttl}
}

func (c *RateCache) key(productID string) string {
	return fmt.Sprintf("catalog:rate:%s", productID)
}

// Get returns the cached rate. ok is false on a miss.
func (c *RateCache) Get(ctx context.Context, productID string) (rate *models.ResolvedRate, ok bool, err error) {
	raw, err := c.store.Get(ctx, c.key(productID))
	if errors.Is(err, ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var r models.ResolvedRate
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached rate: %w", err)
	}
	return &r, true, nil
}

// Put overwrites the entry. Called after an approval commits.
func (c *RateCache) Put(ctx context.Context, rate *models.ResolvedRate) error {
	raw, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("failed to marshal rate: %w", err)
	}
	return c.store.Set(ctx, c.key(rate.ProductID), string(raw), c.ttl)
}

// PutIfAbsent fills a missing entry and leaves an existing one untouched.
func (c *RateCache) PutIfAbsent(ctx context.Context, rate *models.ResolvedRate) (bool, error) {
	raw, err := json.Marshal(rate)
	if err != nil {
		return false, fmt.Errorf("failed to marshal rate: %w", err)
	}
	return c.store.SetNX(ctx, c.key(rate.ProductID), string(raw), c.ttl)
}

// Invalidate drops a product's entry.
func (c *RateCache) Invalidate(ctx context.Context, productID string) error {
	return c.store.Delete(ctx, c.key(productID))
}
