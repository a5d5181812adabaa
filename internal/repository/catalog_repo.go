package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/tripquote_api/internal/database"
	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

const versionColumns = `version_id, product_id, version_number, owner_id, kind, destination_id, name, description,
    currency, net_cost, vehicle_capacity, adult_cost, child_cost, transfer_addon, status, rejection_reason,
    is_current, approved_by, approved_at, created_at, updated_at`

// ApproveResult is the outcome of an atomic promotion.
type ApproveResult struct {
	Approved *models.ProductVersion
	// Demoted is the version that lost the current slot, if any.
	Demoted *models.ProductVersion
}

// CatalogRepository stores product versions in PostgreSQL. A partial unique
// index on (product_id) WHERE is_current backs the one-current-version rule.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetVersion returns a single version by id.
func (r *CatalogRepository) GetVersion(ctx context.Context, versionID string) (*models.ProductVersion, error) {
	var v models.ProductVersion
	q := `SELECT ` + versionColumns + ` FROM product_versions WHERE version_id = $1`
	if err := r.db.GetContext(ctx, &v, q, versionID); err != nil {
		return nil, notFound(err, "version %s", versionID)
	}
	return &v, nil
}

// LatestVersion returns the highest-numbered version of a product.
func (r *CatalogRepository) LatestVersion(ctx context.Context, productID string) (*models.ProductVersion, error) {
	var v models.ProductVersion
	q := `SELECT ` + versionColumns + ` FROM product_versions
        WHERE product_id = $1 ORDER BY version_number DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &v, q, productID); err != nil {
		return nil, notFound(err, "product %s", productID)
	}
	return &v, nil
}

// CurrentVersion returns the approved version currently used for pricing.
func (r *CatalogRepository) CurrentVersion(ctx context.Context, productID string) (*models.ProductVersion, error) {
	var v models.ProductVersion
	q := `SELECT ` + versionColumns + ` FROM product_versions
        WHERE product_id = $1 AND is_current = true AND status = 'APPROVED'`
	if err := r.db.GetContext(ctx, &v, q, productID); err != nil {
		return nil, notFound(err, "no approved version of product %s", productID)
	}
	return &v, nil
}

// ListVersions returns the full history of a product, oldest first.
func (r *CatalogRepository) ListVersions(ctx context.Context, productID string) ([]models.ProductVersion, error) {
	q := `SELECT ` + versionColumns + ` FROM product_versions WHERE product_id = $1 ORDER BY version_number`
	return r.list(ctx, q, productID)
}

// ListByOwner returns every version submitted by an operator or supplier.
func (r *CatalogRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.ProductVersion, error) {
	q := `SELECT ` + versionColumns + ` FROM product_versions WHERE owner_id = $1 ORDER BY product_id, version_number`
	return r.list(ctx, q, ownerID)
}

// ListPending returns the approval queue, oldest submission first.
func (r *CatalogRepository) ListPending(ctx context.Context) ([]models.ProductVersion, error) {
	q := `SELECT ` + versionColumns + ` FROM product_versions WHERE status = 'PENDING_APPROVAL' ORDER BY updated_at`
	return r.list(ctx, q)
}

// ListCurrent returns every current approved version.
func (r *CatalogRepository) ListCurrent(ctx context.Context) ([]models.ProductVersion, error) {
	q := `SELECT ` + versionColumns + ` FROM product_versions WHERE is_current = true AND status = 'APPROVED' ORDER BY product_id`
	return r.list(ctx, q)
}

func (r *CatalogRepository) list(ctx context.Context, q string, args ...interface{}) ([]models.ProductVersion, error) {
	versions := []models.ProductVersion{}
	if err := r.db.SelectContext(ctx, &versions, q, args...); err != nil {
		return nil, err
	}
	return versions, nil
}

// Insert stores a new version. A clash on (product_id, version_number) means
// a concurrent edit already claimed the number and is reported as ErrConflict.
func (r *CatalogRepository) Insert(ctx context.Context, v *models.ProductVersion) error {
	const q = `INSERT INTO product_versions (` + versionColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.db.ExecContext(ctx, q,
		v.VersionID, v.ProductID, v.VersionNumber, v.OwnerID, v.Kind, v.DestinationID, v.Name, v.Description,
		v.Currency, v.NetCost, v.VehicleCapacity, v.AdultCost, v.ChildCost, v.TransferAddOn, v.Status, v.RejectionReason,
		v.IsCurrent, v.ApprovedBy, v.ApprovedAt, v.CreatedAt, v.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: version %d of product %s already exists", utils.ErrConflict, v.VersionNumber, v.ProductID)
	}
	return err
}

// UpdateUnapproved rewrites a pending or rejected version in place. Approved
// rows are never touched; if the row was approved meanwhile ErrConflict is returned.
func (r *CatalogRepository) UpdateUnapproved(ctx context.Context, v *models.ProductVersion) error {
	const q = `UPDATE product_versions
        SET destination_id = $2, name = $3, description = $4, currency = $5, net_cost = $6,
            vehicle_capacity = $7, adult_cost = $8, child_cost = $9, transfer_addon = $10,
            status = $11, rejection_reason = $12, updated_at = $13
        WHERE version_id = $1 AND status IN ('PENDING_APPROVAL', 'REJECTED')`
	res, err := r.db.ExecContext(ctx, q,
		v.VersionID, v.DestinationID, v.Name, v.Description, v.Currency, v.NetCost,
		v.VehicleCapacity, v.AdultCost, v.ChildCost, v.TransferAddOn,
		v.Status, v.RejectionReason, v.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res, "version %s is no longer editable in place", v.VersionID)
}

// Approve promotes a pending version to current and demotes the previous
// current version of the same product in one transaction. All rows of the
// product are locked first, so concurrent approvals serialize and readers
// only ever see the state before or after the swap.
func (r *CatalogRepository) Approve(ctx context.Context, versionID, reviewerID string, at time.Time) (*ApproveResult, error) {
	target, err := r.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	result := &ApproveResult{}
	err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked []models.ProductVersion
		lockQ := `SELECT ` + versionColumns + ` FROM product_versions WHERE product_id = $1 ORDER BY version_number FOR UPDATE`
		if err := tx.SelectContext(ctx, &locked, lockQ, target.ProductID); err != nil {
			return err
		}

		var current *models.ProductVersion
		for i := range locked {
			v := &locked[i]
			if v.VersionID == versionID && v.Status != models.StatusPendingApproval {
				return fmt.Errorf("%w: version %s was %s by a concurrent review", utils.ErrConflict, versionID, v.Status)
			}
			if v.IsCurrent && v.VersionID != versionID {
				current = v
			}
		}

		if current != nil {
			const demoteQ = `UPDATE product_versions SET is_current = false, updated_at = $2 WHERE version_id = $1`
			if _, err := tx.ExecContext(ctx, demoteQ, current.VersionID, at); err != nil {
				return err
			}
			current.IsCurrent = false
			current.UpdatedAt = at
			result.Demoted = current
		}

		var approved models.ProductVersion
		promoteQ := `UPDATE product_versions
            SET status = 'APPROVED', is_current = true, rejection_reason = NULL,
                approved_by = $2, approved_at = $3, updated_at = $3
            WHERE version_id = $1 AND status = 'PENDING_APPROVAL'
            RETURNING ` + versionColumns
		if err := tx.GetContext(ctx, &approved, promoteQ, versionID, reviewerID, at); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: version %s is no longer pending", utils.ErrConflict, versionID)
			}
			return err
		}
		result.Approved = &approved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reject marks a pending version rejected with a reason.
func (r *CatalogRepository) Reject(ctx context.Context, versionID, reason string, at time.Time) (*models.ProductVersion, error) {
	var v models.ProductVersion
	q := `UPDATE product_versions
        SET status = 'REJECTED', rejection_reason = $2, is_current = false, updated_at = $3
        WHERE version_id = $1 AND status = 'PENDING_APPROVAL'
        RETURNING ` + versionColumns
	if err := r.db.GetContext(ctx, &v, q, versionID, reason, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: version %s is no longer pending", utils.ErrConflict, versionID)
		}
		return nil, err
	}
	return &v, nil
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: "+format, append([]interface{}{utils.ErrNotFound}, args...)...)
	}
	return err
}

func expectOneRow(res sql.Result, format string, args ...interface{}) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: "+format, append([]interface{}{utils.ErrConflict}, args...)...)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
