package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// QuoteRepository stores finalized quotes.
type QuoteRepository struct {
	db *sqlx.DB
}

// NewQuoteRepository creates a new QuoteRepository.
func NewQuoteRepository(db *sqlx.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// Create persists q. The breakdown and itinerary are stored as JSONB snapshots
// so later catalog changes never alter a saved quote.
func (r *QuoteRepository) Create(ctx context.Context, q *models.Quote) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO quotes (id, agent_id, title, pax_count, itinerary, breakdown, selling_price, currency, created_at)
		VALUES (:id, :agent_id, :title, :pax_count, :itinerary, :breakdown, :selling_price, :currency, :created_at)
	`, q)
	return err
}

// GetByID returns a quote by id.
func (r *QuoteRepository) GetByID(ctx context.Context, id string) (*models.Quote, error) {
	var q models.Quote
	err := r.db.GetContext(ctx, &q, `
		SELECT id, agent_id, title, pax_count, itinerary, breakdown, selling_price, currency, created_at
		FROM quotes WHERE id = $1
	`, id)
	if err != nil {
		return nil, notFound(err, "quote %s", id)
	}
	return &q, nil
}

// MemoryQuoteRepository keeps quotes in memory for the CLI and tests.
type MemoryQuoteRepository struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote
}

func NewMemoryQuoteRepository() *MemoryQuoteRepository {
	return &MemoryQuoteRepository{quotes: make(map[string]models.Quote)}
}

func (r *MemoryQuoteRepository) Create(_ context.Context, q *models.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes[q.ID] = *q
	return nil
}

func (r *MemoryQuoteRepository) GetByID(_ context.Context, id string) (*models.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quotes[id]
	if !ok {
		return nil, fmt.Errorf("%w: quote %s", utils.ErrNotFound, id)
	}
	return &q, nil
}
