package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GTDGit/tripquote_api/internal/models"
)

const ruleKey = "pricing:rule"

// RuleCache caches the global pricing rule.
type RuleCache struct {
	store Store
	ttl   time.Duration
}

func NewRuleCache(store Store, ttl time.Duration) *RuleCache {
	return &RuleCache{store: store, ttl: ttl}
}

// Get returns the cached rule. ok is false on a miss.
func (c *RuleCache) Get(ctx context.Context) (*models.PricingRule, bool, error) {
	raw, err := c.store.Get(ctx, ruleKey)
	if errors.Is(err, ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rule models.PricingRule
	if err := json.Unmarshal([]byte(raw), &rule); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached rule: %w", err)
	}
	return &rule, true, nil
}

// Put overwrites the cached rule. Only writers of the rule call it.
func (c *RuleCache) Put(ctx context.Context, rule *models.PricingRule) error {
	raw, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("failed to marshal rule: %w", err)
	}
	return c.store.Set(ctx, ruleKey, string(raw), c.ttl)
}

// PutIfAbsent fills the cache after a miss. A rule cached by a concurrent
// update is left in place.
func (c *RuleCache) PutIfAbsent(ctx context.Context, rule *models.PricingRule) (bool, error) {
	raw, err := json.Marshal(rule)
	if err != nil {
		return false, fmt.Errorf("failed to marshal rule: %w", err)
	}
	return c.store.SetNX(ctx, ruleKey, string(raw), c.ttl)
}

func (c *RuleCache) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, ruleKey)
}
