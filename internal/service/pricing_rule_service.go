package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/tripquote_api/internal/cache"
	"github.com/GTDGit/tripquote_api/internal/config"
	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// RuleStore persists the global pricing rule.
type RuleStore interface {
	Get(ctx context.Context) (*models.PricingRule, error)
	Upsert(ctx context.Context, rule *models.PricingRule) error
	SeedIfMissing(ctx context.Context, rule *models.PricingRule) error
}

// PricingRuleService reads and updates the global markup and tax rule.
type PricingRuleService struct {
	store RuleStore
	cache *cache.RuleCache
	now   func() time.Time
}

// NewPricingRuleService constructs a PricingRuleService. cache may be nil.
func NewPricingRuleService(store RuleStore, cache *cache.RuleCache) *PricingRuleService {
	return &PricingRuleService{
		store: store,
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// UpdatePricingRuleRequest is the admin payload for PUT /v1/admin/pricing-rule.
type UpdatePricingRuleRequest struct {
	CompanyMarkupPercent *decimal.Decimal `json:"companyMarkupPercent" binding:"required"`
	AgentMarkupPercent   *decimal.Decimal `json:"agentMarkupPercent" binding:"required"`
	TaxPercent           *decimal.Decimal `json:"taxPercent" binding:"required"`
}

// Seed stores the configured defaults unless a rule already exists.
func (s *PricingRuleService) Seed(ctx context.Context, defaults config.PricingConfig) error {
	return s.store.SeedIfMissing(ctx, &models.PricingRule{
		CompanyMarkupPercent: defaults.CompanyMarkupPercent,
		AgentMarkupPercent:   defaults.AgentMarkupPercent,
		TaxPercent:           defaults.TaxPercent,
		UpdatedAt:            s.now(),
	})
}

// Current returns the rule every pricing run uses. A missing rule is a
// configuration error, not a zero rule.
func (s *PricingRuleService) Current(ctx context.Context) (*models.PricingRule, error) {
	if s.cache != nil {
		rule, ok, err := s.cache.Get(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Pricing rule cache read failed")
		} else if ok {
			return rule, nil
		}
	}

	rule, err := s.store.Get(ctx)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, fmt.Errorf("%w: pricing rule is not set", utils.ErrConfiguration)
	}
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if _, err := s.cache.PutIfAbsent(ctx, rule); err != nil {
			log.Warn().Err(err).Msg("Failed to fill pricing rule cache")
		}
	}
	return rule, nil
}

// Update replaces the rule. Admin only; enforced at the route.
func (s *PricingRuleService) Update(ctx context.Context, req UpdatePricingRuleRequest, adminID string) (*models.PricingRule, error) {
	for name, pct := range map[string]*decimal.Decimal{
		"companyMarkupPercent": req.CompanyMarkupPercent,
		"agentMarkupPercent":   req.AgentMarkupPercent,
		"taxPercent":           req.TaxPercent,
	} {
		if pct == nil {
			return nil, fmt.Errorf("%w: %s is required", utils.ErrValidation, name)
		}
		if pct.IsNegative() {
			return nil, fmt.Errorf("%w: %s must not be negative", utils.ErrValidation, name)
		}
	}

	rule := &models.PricingRule{
		CompanyMarkupPercent: *req.CompanyMarkupPercent,
		AgentMarkupPercent:   *req.AgentMarkupPercent,
		TaxPercent:           *req.TaxPercent,
		UpdatedBy:            &adminID,
		UpdatedAt:            s.now(),
	}
	if err := s.store.Upsert(ctx, rule); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, rule); err != nil {
			log.Warn().Err(err).Msg("Failed to write pricing rule cache")
			if err := s.cache.Invalidate(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to invalidate pricing rule cache")
			}
		}
	}

	log.Info().
		Str("updated_by", adminID).
		Str("company_markup_percent", rule.CompanyMarkupPercent.String()).
		Str("agent_markup_percent", rule.AgentMarkupPercent.String()).
		Str("tax_percent", rule.TaxPercent.String()).
		Msg("Pricing rule updated")
	return rule, nil
}
