// Package cli holds the quotectl subcommands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/GTDGit/tripquote_api/internal/cache"
	"github.com/GTDGit/tripquote_api/internal/config"
	"github.com/GTDGit/tripquote_api/internal/currency"
	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/pricing"
	"github.com/GTDGit/tripquote_api/internal/repository"
	"github.com/GTDGit/tripquote_api/internal/service"
)

const localActor = "quotectl"

type priceOptions struct {
	catalogPath   string
	itineraryPath string
	companyMarkup string
	agentMarkup   string
	tax           string
	pax           int
	currency      string
	rates         []string
	capacity      int
}

// PriceCommand creates the price command. It loads a catalog file into an
// in-memory inventory, approves every product and prices one itinerary
// offline through the same pipeline the API uses.
func PriceCommand() *cobra.Command {
	opts := priceOptions{}

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price an itinerary against a local catalog file",
		Long: `Price an itinerary without a database.

The catalog file is a JSON array of product drafts. Each draft must carry a
productId so itinerary lines can reference it. Every product is submitted and
approved before pricing. The itinerary file is a JSON array of days.

Examples:
  quotectl price --catalog catalog.json --itinerary trip.json --pax 5
  quotectl price --catalog catalog.json --itinerary trip.json --tax 11 --rate EUR=1.08`,
		RunE: func(cmd *cobra.Command, args []string) error {
			breakdown, err := runPrice(cmd.Context(), opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(breakdown)
		},
	}

	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "Catalog JSON file (array of product drafts)")
	cmd.Flags().StringVar(&opts.itineraryPath, "itinerary", "", "Itinerary JSON file (array of days)")
	cmd.Flags().StringVar(&opts.companyMarkup, "company-markup", "10", "Company markup percent")
	cmd.Flags().StringVar(&opts.agentMarkup, "agent-markup", "0", "Agent markup percent")
	cmd.Flags().StringVar(&opts.tax, "tax", "5", "Tax percent")
	cmd.Flags().IntVar(&opts.pax, "pax", 0, "Pax count for lines without a pax breakdown")
	cmd.Flags().StringVar(&opts.currency, "currency", "USD", "Accounting currency")
	cmd.Flags().StringSliceVar(&opts.rates, "rate", nil, "Exchange rate CODE=VALUE in accounting currency per unit (repeatable)")
	cmd.Flags().IntVar(&opts.capacity, "vehicle-capacity", pricing.DefaultVehicleCapacity, "Default vehicle capacity")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("itinerary")

	return cmd
}

func runPrice(ctx context.Context, opts priceOptions) (*models.PriceBreakdown, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rule, err := parseRule(opts)
	if err != nil {
		return nil, err
	}

	rates := currency.NewSingle(opts.currency)
	for _, pair := range opts.rates {
		code, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --rate %q: want CODE=VALUE", pair)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid --rate %q: %w", pair, err)
		}
		if err := rates.SetRate(strings.TrimSpace(code), d); err != nil {
			return nil, err
		}
	}

	var drafts []models.ProductDraft
	if err := readJSON(opts.catalogPath, &drafts); err != nil {
		return nil, err
	}
	var days []models.Day
	if err := readJSON(opts.itineraryPath, &days); err != nil {
		return nil, err
	}

	rateCache := cache.NewRateCache(cache.NewMemoryStore(), time.Hour)
	inventory := service.NewInventoryService(
		repository.NewMemoryCatalogRepository(),
		repository.NewMemoryAuditLog(),
		rateCache,
		rates,
	)
	actor := service.Actor{ID: localActor, Role: models.RoleOperator}
	for i, d := range drafts {
		if strings.TrimSpace(d.ProductID) == "" {
			return nil, fmt.Errorf("catalog entry %d: productId is required", i+1)
		}
		v, err := inventory.Submit(ctx, actor, d)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d (%s): %w", i+1, d.ProductID, err)
		}
		if _, err := inventory.Approve(ctx, v.VersionID, localActor); err != nil {
			return nil, fmt.Errorf("catalog entry %d (%s): %w", i+1, d.ProductID, err)
		}
	}
	log.Debug().Int("products", len(drafts)).Msg("Local catalog loaded")

	rules := service.NewPricingRuleService(repository.NewMemoryPricingRuleRepository(), nil)
	if err := rules.Seed(ctx, rule); err != nil {
		return nil, err
	}

	pipeline := pricing.NewPipeline(inventory, rates, pricing.NewCalculator(opts.capacity))
	quotes := service.NewQuoteService(pipeline, rules, repository.NewMemoryQuoteRepository())

	return quotes.Estimate(ctx, service.QuoteRequest{Days: days, PaxCount: opts.pax})
}

func parseRule(opts priceOptions) (config.PricingConfig, error) {
	var (
		rule config.PricingConfig
		err  error
	)
	if rule.CompanyMarkupPercent, err = parsePercent("company-markup", opts.companyMarkup); err != nil {
		return rule, err
	}
	if rule.AgentMarkupPercent, err = parsePercent("agent-markup", opts.agentMarkup); err != nil {
		return rule, err
	}
	if rule.TaxPercent, err = parsePercent("tax", opts.tax); err != nil {
		return rule, err
	}
	return rule, nil
}

func parsePercent(flag, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: %w", flag, raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: must not be negative", flag, raw)
	}
	return d, nil
}

func readJSON(path string, dst interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
