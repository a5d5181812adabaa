package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/pricing"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// QuoteStore persists finalized quotes.
type QuoteStore interface {
	Create(ctx context.Context, q *models.Quote) error
	GetByID(ctx context.Context, id string) (*models.Quote, error)
}

// QuoteRequest is the itinerary an agent asks to have priced.
type QuoteRequest struct {
	Title              string           `json:"title"`
	Days               []models.Day     `json:"days" binding:"required"`
	PaxCount           int              `json:"paxCount"`
	AgentMarkupPercent *decimal.Decimal `json:"agentMarkupPercent"`
	Currency           string           `json:"currency"`
}

// QuoteService prices itineraries for provisional estimates and final
// quotes. Both go through the same pipeline so the two figures never diverge.
type QuoteService struct {
	pipeline *pricing.Pipeline
	rules    *PricingRuleService
	quotes   QuoteStore
	now      func() time.Time
}

// NewQuoteService constructs a QuoteService.
func NewQuoteService(pipeline *pricing.Pipeline, rules *PricingRuleService, quotes QuoteStore) *QuoteService {
	return &QuoteService{
		pipeline: pipeline,
		rules:    rules,
		quotes:   quotes,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Estimate prices the itinerary without persisting anything.
func (s *QuoteService) Estimate(ctx context.Context, req QuoteRequest) (*models.PriceBreakdown, error) {
	rule, err := s.rules.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Price(ctx, toPricingRequest(req), rule)
}

// Finalize prices the itinerary and stores the result as a quote owned by
// the agent. The stored figure is always the server-computed one.
func (s *QuoteService) Finalize(ctx context.Context, agentID string, req QuoteRequest) (*models.Quote, error) {
	breakdown, err := s.Estimate(ctx, req)
	if err != nil {
		return nil, err
	}

	q := &models.Quote{
		ID:           uuid.NewString(),
		AgentID:      agentID,
		Title:        strings.TrimSpace(req.Title),
		PaxCount:     req.PaxCount,
		Itinerary:    models.Itinerary(req.Days),
		Breakdown:    *breakdown,
		SellingPrice: breakdown.SellingPrice,
		Currency:     breakdown.Currency,
		CreatedAt:    s.now(),
	}
	if err := s.quotes.Create(ctx, q); err != nil {
		return nil, err
	}

	log.Info().
		Str("quote_id", q.ID).
		Str("agent_id", agentID).
		Str("selling_price", q.SellingPrice.String()).
		Str("currency", q.Currency).
		Int("warnings", len(breakdown.Warnings)).
		Msg("Quote finalized")
	return q, nil
}

// Get returns a stored quote. Agents may only read their own.
func (s *QuoteService) Get(ctx context.Context, actor Actor, id string) (*models.Quote, error) {
	q, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && q.AgentID != actor.ID {
		return nil, fmt.Errorf("%w: quote %s belongs to another agent", utils.ErrForbidden, id)
	}
	return q, nil
}

func toPricingRequest(req QuoteRequest) pricing.Request {
	return pricing.Request{
		Days:               req.Days,
		PaxCount:           req.PaxCount,
		AgentMarkupPercent: req.AgentMarkupPercent,
		Currency:           req.Currency,
	}
}
