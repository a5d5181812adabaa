package repository

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/tripquote_api/internal/models"
)

// AuditRepository appends approve/reject decisions to catalog_audit_log.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record stores one audit event. Rows are never updated.
func (r *AuditRepository) Record(ctx context.Context, e models.AuditEvent) error {
	query := `
		INSERT INTO catalog_audit_log
			(id, action, product_id, version_id, reviewer_id, from_status, to_status, demoted_version_id, reason, created_at)
		VALUES (:id, :action, :product_id, :version_id, :reviewer_id, :from_status, :to_status, :demoted_version_id, :reason, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, e)
	return err
}

// ListByProduct returns the review history of a product, oldest first.
func (r *AuditRepository) ListByProduct(ctx context.Context, productID string) ([]models.AuditEvent, error) {
	events := []models.AuditEvent{}
	err := r.db.SelectContext(ctx, &events, `
		SELECT id, action, product_id, version_id, reviewer_id, from_status, to_status, demoted_version_id, reason, created_at
		FROM catalog_audit_log
		WHERE product_id = $1
		ORDER BY created_at, id
	`, productID)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// MemoryAuditLog is the in-process AuditRepository used by tests and the CLI.
type MemoryAuditLog struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

func (l *MemoryAuditLog) Record(_ context.Context, e models.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *MemoryAuditLog) ListByProduct(_ context.Context, productID string) ([]models.AuditEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []models.AuditEvent{}
	for _, e := range l.events {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}
