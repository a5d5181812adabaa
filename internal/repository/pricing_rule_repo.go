package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// pricingRuleID is the primary key of the single global rule row.
const pricingRuleID = 1

// PricingRuleRepository persists the global pricing rule.
type PricingRuleRepository struct {
	db *sqlx.DB
}

// NewPricingRuleRepository creates a new PricingRuleRepository.
func NewPricingRuleRepository(db *sqlx.DB) *PricingRuleRepository {
	return &PricingRuleRepository{db: db}
}

// Get returns the stored rule or an ErrNotFound-wrapped error when none is set.
func (r *PricingRuleRepository) Get(ctx context.Context) (*models.PricingRule, error) {
	var rule models.PricingRule
	err := r.db.GetContext(ctx, &rule, `
		SELECT id, company_markup_percent, agent_markup_percent, tax_percent, updated_by, updated_at
		FROM pricing_rules WHERE id = $1
	`, pricingRuleID)
	if err != nil {
		return nil, notFound(err, "pricing rule")
	}
	return &rule, nil
}

// Upsert replaces the global rule.
func (r *PricingRuleRepository) Upsert(ctx context.Context, rule *models.PricingRule) error {
	rule.ID = pricingRuleID
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO pricing_rules (id, company_markup_percent, agent_markup_percent, tax_percent, updated_by, updated_at)
		VALUES (:id, :company_markup_percent, :agent_markup_percent, :tax_percent, :updated_by, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			company_markup_percent = EXCLUDED.company_markup_percent,
			agent_markup_percent = EXCLUDED.agent_markup_percent,
			tax_percent = EXCLUDED.tax_percent,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`, rule)
	return err
}

// SeedIfMissing inserts rule only when no row exists yet.
func (r *PricingRuleRepository) SeedIfMissing(ctx context.Context, rule *models.PricingRule) error {
	rule.ID = pricingRuleID
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO pricing_rules (id, company_markup_percent, agent_markup_percent, tax_percent, updated_by, updated_at)
		VALUES (:id, :company_markup_percent, :agent_markup_percent, :tax_percent, :updated_by, :updated_at)
		ON CONFLICT (id) DO NOTHING
	`, rule)
	return err
}

// MemoryPricingRuleRepository holds the rule in memory.
type MemoryPricingRuleRepository struct {
	mu   sync.RWMutex
	rule *models.PricingRule
}

func NewMemoryPricingRuleRepository() *MemoryPricingRuleRepository {
	return &MemoryPricingRuleRepository{}
}

func (r *MemoryPricingRuleRepository) Get(_ context.Context) (*models.PricingRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.rule == nil {
		return nil, fmt.Errorf("%w: pricing rule", utils.ErrNotFound)
	}
	c := *r.rule
	return &c, nil
}

func (r *MemoryPricingRuleRepository) Upsert(_ context.Context, rule *models.PricingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *rule
	c.ID = pricingRuleID
	r.rule = &c
	return nil
}

func (r *MemoryPricingRuleRepository) SeedIfMissing(_ context.Context, rule *models.PricingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rule == nil {
		c := *rule
		c.ID = pricingRuleID
		r.rule = &c
	}
	return nil
}
