package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tripquote_api/internal/cache"
	"github.com/GTDGit/tripquote_api/internal/config"
	"github.com/GTDGit/tripquote_api/internal/currency"
	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/pricing"
	"github.com/GTDGit/tripquote_api/internal/repository"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

func newQuoteFixture(t *testing.T) (*inventoryFixture, *PricingRuleService, *QuoteService) {
	t.Helper()
	f := newInventoryFixture(t)
	rules := NewPricingRuleService(repository.NewMemoryPricingRuleRepository(), cache.NewRuleCache(cache.NewMemoryStore(), time.Minute))
	pipeline := pricing.NewPipeline(f.svc, currency.NewSingle("USD"), pricing.NewCalculator(pricing.DefaultVehicleCapacity))
	return f, rules, NewQuoteService(pipeline, rules, repository.NewMemoryQuoteRepository())
}

func TestEstimateWithoutRuleIsConfigurationError(t *testing.T) {
	_, _, quotes := newQuoteFixture(t)
	_, err := quotes.Estimate(context.Background(), QuoteRequest{})
	assert.ErrorIs(t, err, utils.ErrConfiguration)
}

func TestFinalizeUsesApprovedCatalogRate(t *testing.T) {
	f, rules, quotes := newQuoteFixture(t)
	ctx := context.Background()

	require.NoError(t, rules.Seed(ctx, config.PricingConfig{
		CompanyMarkupPercent: decimal.NewFromInt(10),
		AgentMarkupPercent:   decimal.NewFromInt(5),
		TaxPercent:           decimal.NewFromInt(5),
	}))

	v, err := f.svc.Submit(ctx, supplier, hotelDraft("", "100"))
	require.NoError(t, err)
	req := QuoteRequest{
		Title:    "Bali honeymoon",
		PaxCount: 2,
		Days: []models.Day{{DayNumber: 1, Services: []models.ItineraryLine{
			{ProductID: v.ProductID, Kind: models.KindHotel, Quantity: 1, Nights: 10, Cost: decimal.NewFromInt(1)},
		}}},
	}

	pending, err := quotes.Estimate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "10", pending.ManualCost.String(), "unapproved product falls back to declared cost")
	assert.Equal(t, models.SourceManual, pending.Lines[0].Source)

	_, err = f.svc.Approve(ctx, v.VersionID, admin.ID)
	require.NoError(t, err)

	q, err := quotes.Finalize(ctx, "agent-1", req)
	require.NoError(t, err)
	assert.Equal(t, "1213", q.SellingPrice.String())
	assert.Equal(t, "1000", q.Breakdown.SupplierCost.String())
	assert.Equal(t, v.VersionID, q.Breakdown.Lines[0].VersionID)
	assert.Equal(t, "USD", q.Currency)

	got, err := quotes.Get(ctx, Actor{ID: "agent-1", Role: models.RoleAgent}, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.SellingPrice.String(), got.SellingPrice.String())

	_, err = quotes.Get(ctx, Actor{ID: "agent-2", Role: models.RoleAgent}, q.ID)
	assert.ErrorIs(t, err, utils.ErrForbidden)
	_, err = quotes.Get(ctx, admin, q.ID)
	assert.NoError(t, err)
	_, err = quotes.Get(ctx, admin, "missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestEstimateRejectsKindThatDiffersFromCatalog(t *testing.T) {
	f, rules, quotes := newQuoteFixture(t)
	ctx := context.Background()
	require.NoError(t, rules.Seed(ctx, config.PricingConfig{CompanyMarkupPercent: decimal.NewFromInt(10)}))

	v, err := f.svc.Submit(ctx, supplier, hotelDraft("", "100"))
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, v.VersionID, admin.ID)
	require.NoError(t, err)

	line := models.ItineraryLine{ProductID: v.ProductID, Kind: models.KindTransfer, Quantity: 1, Nights: 3, Cost: decimal.NewFromInt(1)}
	_, err = quotes.Estimate(ctx, QuoteRequest{PaxCount: 2, Days: []models.Day{{DayNumber: 1, Services: []models.ItineraryLine{line}}}})
	assert.ErrorIs(t, err, utils.ErrValidation)

	line.Kind = models.KindHotel
	got, err := quotes.Estimate(ctx, QuoteRequest{PaxCount: 2, Days: []models.Day{{DayNumber: 1, Services: []models.ItineraryLine{line}}}})
	require.NoError(t, err)
	assert.Equal(t, "300", got.SupplierCost.String())
	assert.Equal(t, "0", got.ManualCost.String())
	assert.Equal(t, models.SourceCatalog, got.Lines[0].Source)
}

func TestPricingRuleUpdate(t *testing.T) {
	_, rules, _ := newQuoteFixture(t)
	ctx := context.Background()

	neg := decimal.NewFromInt(-1)
	ten := decimal.NewFromInt(10)
	_, err := rules.Update(ctx, UpdatePricingRuleRequest{CompanyMarkupPercent: &ten, AgentMarkupPercent: &ten, TaxPercent: &neg}, admin.ID)
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = rules.Update(ctx, UpdatePricingRuleRequest{CompanyMarkupPercent: &ten}, admin.ID)
	assert.ErrorIs(t, err, utils.ErrValidation)

	seven := decimal.RequireFromString("7.5")
	_, err = rules.Update(ctx, UpdatePricingRuleRequest{CompanyMarkupPercent: &ten, AgentMarkupPercent: &seven, TaxPercent: &ten}, admin.ID)
	require.NoError(t, err)

	current, err := rules.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7.5", current.AgentMarkupPercent.String())
	require.NotNil(t, current.UpdatedBy)
	assert.Equal(t, admin.ID, *current.UpdatedBy)

	require.NoError(t, rules.Seed(ctx, config.PricingConfig{}))
	current, err = rules.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10", current.TaxPercent.String(), "seed never overwrites an existing rule")
}
