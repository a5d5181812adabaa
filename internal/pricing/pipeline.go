package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/tripquote_api/internal/currency"
	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// RateResolver looks up the current approved rate of a catalog product. It
// returns an error wrapping utils.ErrNotFound when the product has none.
type RateResolver interface {
	ResolveCurrentPrice(ctx context.Context, productID string, kind models.ProductKind) (*models.ResolvedRate, error)
}

// Request is one pricing run over a draft itinerary.
type Request struct {
	Days     []models.Day
	PaxCount int
	// AgentMarkupPercent overrides the rule default when set.
	AgentMarkupPercent *decimal.Decimal
	// Currency of manual line costs that do not declare their own.
	Currency string
}

// Pipeline computes the authoritative PriceBreakdown of an itinerary.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	resolver   RateResolver
	normalizer currency.Normalizer
	calc       Calculator
}

// NewPipeline constructs a Pipeline.
func NewPipeline(resolver RateResolver, normalizer currency.Normalizer, calc Calculator) *Pipeline {
	return &Pipeline{resolver: resolver, normalizer: normalizer, calc: calc}
}

// Price runs the fixed pricing order: resolve and cost every line, apply
// platform margin to supplier cost, add manual cost, apply agent markup,
// then tax, and round only the selling price up to a whole unit.
func (p *Pipeline) Price(ctx context.Context, req Request, rule *models.PricingRule) (*models.PriceBreakdown, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if req.PaxCount < 0 {
		return nil, fmt.Errorf("%w: pax count must not be negative", utils.ErrValidation)
	}
	agentPct := rule.AgentMarkupPercent
	if req.AgentMarkupPercent != nil {
		if req.AgentMarkupPercent.IsNegative() {
			return nil, fmt.Errorf("%w: agent markup must not be negative", utils.ErrValidation)
		}
		agentPct = *req.AgentMarkupPercent
	}

	out := &models.PriceBreakdown{
		Currency:           p.normalizer.AccountingCurrency(),
		SupplierCost:       decimal.Zero,
		ManualCost:         decimal.Zero,
		AgentMarkupPercent: agentPct,
		Lines:              []models.LineResult{},
	}

	for _, day := range req.Days {
		for i, line := range day.Services {
			if line.Pax() == 0 && line.Kind != models.KindHotel {
				line.Adults = req.PaxCount
			}
			res, warning, err := p.priceLine(ctx, req, line)
			if err != nil {
				return nil, fmt.Errorf("day %d line %d: %w", day.DayNumber, i+1, err)
			}
			res.DayNumber = day.DayNumber
			res.Index = i
			if warning != "" {
				msg := fmt.Sprintf("day %d line %d: %s", day.DayNumber, i+1, warning)
				out.Warnings = append(out.Warnings, msg)
				log.Warn().Str("product_id", line.ProductID).Msg(msg)
			}

			if res.Source == models.SourceCatalog {
				out.SupplierCost = out.SupplierCost.Add(res.Amount)
			} else {
				out.ManualCost = out.ManualCost.Add(res.Amount)
			}
			out.Lines = append(out.Lines, res)
		}
	}

	out.PlatformMargin = percentOf(out.SupplierCost, rule.CompanyMarkupPercent)
	out.NetCost = out.SupplierCost.Add(out.PlatformMargin).Add(out.ManualCost)
	out.AgentMarkup = percentOf(out.NetCost, agentPct)
	out.Subtotal = out.NetCost.Add(out.AgentMarkup)
	out.Tax = percentOf(out.Subtotal, rule.TaxPercent)
	out.SellingPrice = out.Subtotal.Add(out.Tax).Ceil()

	return out, nil
}

// priceLine resolves and costs one line. The resolved catalog rate always
// wins over the caller-declared cost.
func (p *Pipeline) priceLine(ctx context.Context, req Request, line models.ItineraryLine) (models.LineResult, string, error) {
	res := models.LineResult{ProductID: line.ProductID, Kind: line.Kind, Source: models.SourceManual}

	var rate *models.ResolvedRate
	warning := ""
	if line.ProductID != "" {
		r, err := p.resolver.ResolveCurrentPrice(ctx, line.ProductID, line.Kind)
		switch {
		case err == nil:
			rate = r
		case errors.Is(err, utils.ErrNotFound):
			if line.Cost.IsZero() {
				warning = fmt.Sprintf("product %s has no approved version and no declared cost; counted as zero", line.ProductID)
			}
		default:
			return res, "", err
		}
	}

	cost, err := p.calc.ComputeLineCost(rate, line)
	if err != nil {
		return res, "", err
	}

	from := line.Currency
	if rate != nil {
		from = rate.Currency
		res.Source = models.SourceCatalog
		res.Kind = rate.Kind
		res.VersionID = rate.VersionID
		res.VersionNumber = rate.VersionNumber
	} else if from == "" {
		from = req.Currency
	}

	amount, err := p.normalizer.ToAccountingCurrency(cost.Amount, from)
	if err != nil {
		return res, "", err
	}
	res.Amount = amount
	res.Quantity = cost.Quantity
	return res, warning, nil
}

func validateRule(rule *models.PricingRule) error {
	if rule == nil {
		return fmt.Errorf("%w: pricing rule is not set", utils.ErrConfiguration)
	}
	if rule.CompanyMarkupPercent.IsNegative() || rule.AgentMarkupPercent.IsNegative() || rule.TaxPercent.IsNegative() {
		return fmt.Errorf("%w: pricing rule has a negative percent", utils.ErrConfiguration)
	}
	return nil
}

// percentOf is amount × pct / 100. Shift keeps it exact; Div would round.
func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Shift(-2)
}
