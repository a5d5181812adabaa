package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// MemoryCatalogRepository keeps product versions in process memory. It has
// the same atomicity guarantees as CatalogRepository: every mutation runs
// under one lock, so readers never see a half-applied promotion. Used by the
// offline CLI and by tests.
type MemoryCatalogRepository struct {
	mu       sync.RWMutex
	versions map[string]*models.ProductVersion
	products map[string][]string
}

// NewMemoryCatalogRepository creates an empty in-memory catalog.
func NewMemoryCatalogRepository() *MemoryCatalogRepository {
	return &MemoryCatalogRepository{
		versions: make(map[string]*models.ProductVersion),
		products: make(map[string][]string),
	}
}

func (r *MemoryCatalogRepository) GetVersion(_ context.Context, versionID string) (*models.ProductVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.versions[versionID]
	if !ok {
		return nil, fmt.Errorf("%w: version %s", utils.ErrNotFound, versionID)
	}
	return clone(v), nil
}

func (r *MemoryCatalogRepository) LatestVersion(_ context.Context, productID string) (*models.ProductVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.products[productID]
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: product %s", utils.ErrNotFound, productID)
	}
	return clone(r.versions[ids[len(ids)-1]]), nil
}

func (r *MemoryCatalogRepository) CurrentVersion(_ context.Context, productID string) (*models.ProductVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.products[productID] {
		if v := r.versions[id]; v.IsCurrent && v.Status == models.StatusApproved {
			return clone(v), nil
		}
	}
	return nil, fmt.Errorf("%w: no approved version of product %s", utils.ErrNotFound, productID)
}

func (r *MemoryCatalogRepository) ListVersions(_ context.Context, productID string) ([]models.ProductVersion, error) {
	return r.filter(func(v *models.ProductVersion) bool { return v.ProductID == productID }), nil
}

func (r *MemoryCatalogRepository) ListByOwner(_ context.Context, ownerID string) ([]models.ProductVersion, error) {
	return r.filter(func(v *models.ProductVersion) bool { return v.OwnerID == ownerID }), nil
}

func (r *MemoryCatalogRepository) ListPending(_ context.Context) ([]models.ProductVersion, error) {
	return r.filter(func(v *models.ProductVersion) bool { return v.Status == models.StatusPendingApproval }), nil
}

func (r *MemoryCatalogRepository) ListCurrent(_ context.Context) ([]models.ProductVersion, error) {
	return r.filter(func(v *models.ProductVersion) bool { return v.IsCurrent && v.Status == models.StatusApproved }), nil
}

// filter returns matching versions ordered by product then version number.
func (r *MemoryCatalogRepository) filter(keep func(*models.ProductVersion) bool) []models.ProductVersion {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.ProductVersion{}
	for _, v := range r.versions {
		if keep(v) {
			out = append(out, *clone(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].VersionNumber < out[j].VersionNumber
	})
	return out
}

func (r *MemoryCatalogRepository) Insert(_ context.Context, v *models.ProductVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.versions[v.VersionID]; ok {
		return fmt.Errorf("%w: version %s already exists", utils.ErrConflict, v.VersionID)
	}
	for _, id := range r.products[v.ProductID] {
		if r.versions[id].VersionNumber >= v.VersionNumber {
			return fmt.Errorf("%w: version %d of product %s already exists", utils.ErrConflict, v.VersionNumber, v.ProductID)
		}
	}
	if v.IsCurrent {
		for _, id := range r.products[v.ProductID] {
			if r.versions[id].IsCurrent {
				return fmt.Errorf("%w: product %s already has a current version", utils.ErrConflict, v.ProductID)
			}
		}
	}
	r.versions[v.VersionID] = clone(v)
	r.products[v.ProductID] = append(r.products[v.ProductID], v.VersionID)
	return nil
}

func (r *MemoryCatalogRepository) UpdateUnapproved(_ context.Context, v *models.ProductVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.versions[v.VersionID]
	if !ok {
		return fmt.Errorf("%w: version %s", utils.ErrNotFound, v.VersionID)
	}
	if stored.Status == models.StatusApproved {
		return fmt.Errorf("%w: version %s is no longer editable in place", utils.ErrConflict, v.VersionID)
	}
	updated := clone(v)
	updated.ProductID = stored.ProductID
	updated.VersionNumber = stored.VersionNumber
	updated.OwnerID = stored.OwnerID
	updated.Kind = stored.Kind
	updated.IsCurrent = false
	updated.ApprovedBy = stored.ApprovedBy
	updated.ApprovedAt = stored.ApprovedAt
	updated.CreatedAt = stored.CreatedAt
	r.versions[v.VersionID] = updated
	return nil
}

func (r *MemoryCatalogRepository) Approve(_ context.Context, versionID, reviewerID string, at time.Time) (*ApproveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.versions[versionID]
	if !ok {
		return nil, fmt.Errorf("%w: version %s", utils.ErrNotFound, versionID)
	}
	if target.Status != models.StatusPendingApproval {
		return nil, fmt.Errorf("%w: version %s is no longer pending", utils.ErrConflict, versionID)
	}

	result := &ApproveResult{}
	for _, id := range r.products[target.ProductID] {
		if v := r.versions[id]; v.IsCurrent && id != versionID {
			v.IsCurrent = false
			v.UpdatedAt = at
			result.Demoted = clone(v)
		}
	}
	target.Status = models.StatusApproved
	target.IsCurrent = true
	target.RejectionReason = nil
	target.ApprovedBy = &reviewerID
	target.ApprovedAt = &at
	target.UpdatedAt = at
	result.Approved = clone(target)
	return result, nil
}

func (r *MemoryCatalogRepository) Reject(_ context.Context, versionID, reason string, at time.Time) (*models.ProductVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.versions[versionID]
	if !ok {
		return nil, fmt.Errorf("%w: version %s", utils.ErrNotFound, versionID)
	}
	if v.Status != models.StatusPendingApproval {
		return nil, fmt.Errorf("%w: version %s is no longer pending", utils.ErrConflict, versionID)
	}
	v.Status = models.StatusRejected
	v.RejectionReason = &reason
	v.IsCurrent = false
	v.UpdatedAt = at
	return clone(v), nil
}

// clone deep-copies the pointer fields so callers cannot mutate stored rows.
func clone(v *models.ProductVersion) *models.ProductVersion {
	c := *v
	if v.VehicleCapacity != nil {
		n := *v.VehicleCapacity
		c.VehicleCapacity = &n
	}
	if v.TransferAddOn != nil {
		a := *v.TransferAddOn
		c.TransferAddOn = &a
	}
	if v.RejectionReason != nil {
		s := *v.RejectionReason
		c.RejectionReason = &s
	}
	if v.ApprovedBy != nil {
		s := *v.ApprovedBy
		c.ApprovedBy = &s
	}
	if v.ApprovedAt != nil {
		t := *v.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}
