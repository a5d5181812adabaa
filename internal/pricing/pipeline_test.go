package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tripquote_api/internal/currency"
	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

type stubResolver struct {
	rates map[string]*models.ResolvedRate
	err   error
}

func (s *stubResolver) ResolveCurrentPrice(_ context.Context, productID string, _ models.ProductKind) (*models.ResolvedRate, error) {
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.rates[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", utils.ErrNotFound, productID)
	}
	return r, nil
}

func rule(company, agent, tax string) *models.PricingRule {
	return &models.PricingRule{
		CompanyMarkupPercent: dec(company),
		AgentMarkupPercent:   dec(agent),
		TaxPercent:           dec(tax),
	}
}

func newTestPipeline(rates map[string]*models.ResolvedRate) *Pipeline {
	return NewPipeline(&stubResolver{rates: rates}, currency.NewSingle("USD"), NewCalculator(4))
}

func hotelItinerary(cost string) []models.Day {
	return []models.Day{{
		DayNumber: 1,
		Services: []models.ItineraryLine{
			{ProductID: "hotel-1", Kind: models.KindHotel, Quantity: 1, Nights: 10, Cost: dec(cost)},
		},
	}}
}

func TestPriceBreakdownOrder(t *testing.T) {
	p := newTestPipeline(map[string]*models.ResolvedRate{
		"hotel-1": {ProductID: "hotel-1", VersionID: "v-1", VersionNumber: 1, Kind: models.KindHotel, Currency: "USD", UnitCost: dec("100")},
	})
	agent := dec("5")

	got, err := p.Price(context.Background(), Request{Days: hotelItinerary("0"), PaxCount: 2, AgentMarkupPercent: &agent}, rule("10", "0", "5"))
	require.NoError(t, err)

	assert.Equal(t, "1000", got.SupplierCost.String())
	assert.Equal(t, "100", got.PlatformMargin.String())
	assert.Equal(t, "0", got.ManualCost.String())
	assert.Equal(t, "1100", got.NetCost.String())
	assert.Equal(t, "55", got.AgentMarkup.String())
	assert.Equal(t, "1155", got.Subtotal.String())
	assert.Equal(t, "57.75", got.Tax.String())
	assert.Equal(t, "1213", got.SellingPrice.String())
	assert.Equal(t, "USD", got.Currency)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, models.SourceCatalog, got.Lines[0].Source)
	assert.Equal(t, "v-1", got.Lines[0].VersionID)
}

func TestAgentMarkupDefaultsToRule(t *testing.T) {
	p := newTestPipeline(map[string]*models.ResolvedRate{
		"hotel-1": {ProductID: "hotel-1", Kind: models.KindHotel, UnitCost: dec("100")},
	})

	got, err := p.Price(context.Background(), Request{Days: hotelItinerary("0")}, rule("10", "5", "0"))
	require.NoError(t, err)
	assert.Equal(t, "5", got.AgentMarkupPercent.String())
	assert.Equal(t, "55", got.AgentMarkup.String())
	assert.Equal(t, "1155", got.SellingPrice.String())
}

func TestCatalogRateIgnoresDeclaredCost(t *testing.T) {
	p := newTestPipeline(map[string]*models.ResolvedRate{
		"hotel-1": {ProductID: "hotel-1", Kind: models.KindHotel, UnitCost: dec("100")},
	})
	r := rule("10", "0", "5")

	cheap, err := p.Price(context.Background(), Request{Days: hotelItinerary("1")}, r)
	require.NoError(t, err)
	pricey, err := p.Price(context.Background(), Request{Days: hotelItinerary("999")}, r)
	require.NoError(t, err)

	assert.True(t, cheap.SupplierCost.Equal(pricey.SupplierCost))
	assert.Equal(t, "1000", cheap.SupplierCost.String())
}

func TestManualFallbackAndWarning(t *testing.T) {
	p := newTestPipeline(nil)
	days := []models.Day{{
		DayNumber: 2,
		Services: []models.ItineraryLine{
			{Kind: models.KindActivity, Name: "Private guide", Cost: dec("80")},
			{ProductID: "gone", Kind: models.KindTransfer, Cost: dec("40")},
			{ProductID: "gone-too", Kind: models.KindTransfer},
		},
	}}

	got, err := p.Price(context.Background(), Request{Days: days, PaxCount: 3}, rule("10", "0", "0"))
	require.NoError(t, err)

	assert.Equal(t, "0", got.SupplierCost.String())
	assert.Equal(t, "0", got.PlatformMargin.String(), "margin applies to supplier cost only")
	assert.Equal(t, "120", got.ManualCost.String())
	assert.Equal(t, "120", got.NetCost.String())
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "gone-too")
	for _, l := range got.Lines {
		assert.Equal(t, models.SourceManual, l.Source)
	}
}

func TestPaxCountFillsLinesWithoutBreakdown(t *testing.T) {
	p := newTestPipeline(map[string]*models.ResolvedRate{
		"car": {ProductID: "car", Kind: models.KindTransfer, UnitCost: dec("30"), VehicleCapacity: 4},
	})
	days := []models.Day{{DayNumber: 1, Services: []models.ItineraryLine{{ProductID: "car", Kind: models.KindTransfer}}}}

	got, err := p.Price(context.Background(), Request{Days: days, PaxCount: 5}, rule("0", "0", "0"))
	require.NoError(t, err)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, "60", got.SupplierCost.String())
}

func TestPriceIsIdempotent(t *testing.T) {
	p := newTestPipeline(map[string]*models.ResolvedRate{
		"hotel-1": {ProductID: "hotel-1", Kind: models.KindHotel, UnitCost: dec("99.99")},
		"act-1":   activityRate(),
	})
	days := []models.Day{
		{DayNumber: 1, Services: []models.ItineraryLine{{ProductID: "hotel-1", Kind: models.KindHotel, Quantity: 2, Nights: 3}}},
		{DayNumber: 2, Services: []models.ItineraryLine{
			{ProductID: "act-1", Kind: models.KindActivity, Adults: 2, Children: 1, TransferMode: models.TransferPVT},
			{Kind: models.KindActivity, Cost: dec("12.34")},
		}},
	}
	req := Request{Days: days, PaxCount: 3}
	r := rule("12.5", "7", "11")

	first, err := p.Price(context.Background(), req, r)
	require.NoError(t, err)
	want, err := json.Marshal(first)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			again, err := p.Price(context.Background(), req, r)
			if assert.NoError(t, err) {
				got, _ := json.Marshal(again)
				assert.JSONEq(t, string(want), string(got))
				assert.Equal(t, string(want), string(got))
			}
		}()
	}
	wg.Wait()
}

func TestPriceErrors(t *testing.T) {
	p := newTestPipeline(map[string]*models.ResolvedRate{"act-1": activityRate()})

	_, err := p.Price(context.Background(), Request{}, nil)
	assert.ErrorIs(t, err, utils.ErrConfiguration)

	neg := dec("-1")
	_, err = p.Price(context.Background(), Request{AgentMarkupPercent: &neg}, rule("0", "0", "0"))
	assert.ErrorIs(t, err, utils.ErrValidation)

	r := activityRate()
	r.TransferAddOn.PVT.Enabled = false
	p = newTestPipeline(map[string]*models.ResolvedRate{"act-1": r})
	days := []models.Day{{DayNumber: 1, Services: []models.ItineraryLine{
		{ProductID: "act-1", Kind: models.KindActivity, Adults: 1, TransferMode: models.TransferPVT, Cost: dec("500")},
	}}}
	_, err = p.Price(context.Background(), Request{Days: days}, rule("0", "0", "0"))
	assert.ErrorIs(t, err, utils.ErrValidation, "declared cost is not a fallback for a resolved product")

	down := errors.New("connection refused")
	p = NewPipeline(&stubResolver{err: down}, currency.NewSingle("USD"), NewCalculator(4))
	_, err = p.Price(context.Background(), Request{Days: hotelItinerary("10")}, rule("0", "0", "0"))
	assert.ErrorIs(t, err, down)
}

func TestPriceNormalizesForeignCurrency(t *testing.T) {
	table := currency.NewSingle("USD")
	require.NoError(t, table.SetRate("EUR", decimal.RequireFromString("1.1")))
	p := NewPipeline(&stubResolver{rates: map[string]*models.ResolvedRate{
		"hotel-1": {ProductID: "hotel-1", Kind: models.KindHotel, Currency: "EUR", UnitCost: dec("100")},
	}}, table, NewCalculator(4))

	got, err := p.Price(context.Background(), Request{Days: hotelItinerary("0")}, rule("0", "0", "0"))
	require.NoError(t, err)
	assert.Equal(t, "1100", got.SupplierCost.String())
}
