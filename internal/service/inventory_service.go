package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/tripquote_api/internal/currency"
	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/repository"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// CatalogStore is the persistence surface of the inventory state machine.
// Approve and Reject must be compare-and-set on the pending status.
type CatalogStore interface {
	GetVersion(ctx context.Context, versionID string) (*models.ProductVersion, error)
	LatestVersion(ctx context.Context, productID string) (*models.ProductVersion, error)
	CurrentVersion(ctx context.Context, productID string) (*models.ProductVersion, error)
	ListVersions(ctx context.Context, productID string) ([]models.ProductVersion, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.ProductVersion, error)
	ListPending(ctx context.Context) ([]models.ProductVersion, error)
	ListCurrent(ctx context.Context) ([]models.ProductVersion, error)
	Insert(ctx context.Context, v *models.ProductVersion) error
	UpdateUnapproved(ctx context.Context, v *models.ProductVersion) error
	Approve(ctx context.Context, versionID, reviewerID string, at time.Time) (*repository.ApproveResult, error)
	Reject(ctx context.Context, versionID, reason string, at time.Time) (*models.ProductVersion, error)
}

// AuditRecorder is the sink for approve/reject decisions.
type AuditRecorder interface {
	Record(ctx context.Context, e models.AuditEvent) error
	ListByProduct(ctx context.Context, productID string) ([]models.AuditEvent, error)
}

// RateCache caches current rates. Put overwrites; PutIfAbsent only fills.
type RateCache interface {
	Get(ctx context.Context, productID string) (*models.ResolvedRate, bool, error)
	Put(ctx context.Context, rate *models.ResolvedRate) error
	PutIfAbsent(ctx context.Context, rate *models.ResolvedRate) (bool, error)
	Invalidate(ctx context.Context, productID string) error
}

// Actor is the authenticated caller of a catalog operation.
type Actor struct {
	ID   string
	Role models.Role
}

// InventoryService owns the ProductVersion lifecycle. Submit, Approve and
// Reject are serialized per product; reads are never locked.
type InventoryService struct {
	store      CatalogStore
	audit      AuditRecorder
	cache      RateCache
	normalizer currency.Normalizer
	locks      *keyedMutex
	now        func() time.Time
}

// NewInventoryService constructs an InventoryService. cache may be nil.
func NewInventoryService(store CatalogStore, audit AuditRecorder, cache RateCache, normalizer currency.Normalizer) *InventoryService {
	return &InventoryService{
		store:      store,
		audit:      audit,
		cache:      cache,
		normalizer: normalizer,
		locks:      newKeyedMutex(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a draft. A draft without a product id starts a new product.
// Editing an approved latest version opens version+1 and leaves the approved
// one current; a pending or rejected latest version is rewritten in place.
// Either way the result is PENDING_APPROVAL and not current.
func (s *InventoryService) Submit(ctx context.Context, actor Actor, draft models.ProductDraft) (*models.ProductVersion, error) {
	if err := s.validateDraft(&draft); err != nil {
		return nil, err
	}

	if draft.ProductID == "" {
		draft.ProductID = uuid.NewString()
	}
	unlock := s.locks.Lock(draft.ProductID)
	defer unlock()

	now := s.now()
	latest, err := s.store.LatestVersion(ctx, draft.ProductID)
	if errors.Is(err, utils.ErrNotFound) {
		return s.insertVersion(ctx, actor.ID, 1, draft, now)
	}
	if err != nil {
		return nil, err
	}

	if latest.OwnerID != actor.ID && actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: product %s belongs to another owner", utils.ErrForbidden, draft.ProductID)
	}
	if latest.Kind != draft.Kind {
		return nil, fmt.Errorf("%w: product %s is %s and cannot become %s", utils.ErrValidation, draft.ProductID, latest.Kind, draft.Kind)
	}

	switch latest.Status {
	case models.StatusApproved:
		return s.insertVersion(ctx, latest.OwnerID, latest.VersionNumber+1, draft, now)
	case models.StatusPendingApproval, models.StatusRejected:
		draft.Apply(latest)
		latest.Status = models.StatusPendingApproval
		latest.RejectionReason = nil
		latest.IsCurrent = false
		latest.UpdatedAt = now
		if err := s.store.UpdateUnapproved(ctx, latest); err != nil {
			return nil, err
		}
		log.Info().
			Str("product_id", latest.ProductID).
			Str("version_id", latest.VersionID).
			Int("version_number", latest.VersionNumber).
			Msg("Product version resubmitted")
		return latest, nil
	}
	return nil, fmt.Errorf("%w: version %s has unknown status %s", utils.ErrInvalidState, latest.VersionID, latest.Status)
}

func (s *InventoryService) insertVersion(ctx context.Context, ownerID string, number int, draft models.ProductDraft, now time.Time) (*models.ProductVersion, error) {
	v := &models.ProductVersion{
		VersionID:     uuid.NewString(),
		ProductID:     draft.ProductID,
		VersionNumber: number,
		OwnerID:       ownerID,
		Status:        models.StatusPendingApproval,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	draft.Apply(v)
	if err := s.store.Insert(ctx, v); err != nil {
		return nil, err
	}
	log.Info().
		Str("product_id", v.ProductID).
		Str("version_id", v.VersionID).
		Int("version_number", v.VersionNumber).
		Str("owner_id", ownerID).
		Msg("Product version submitted")
	return v, nil
}

// Approve promotes a pending version to current and demotes the previous
// current version of the product in one atomic step.
func (s *InventoryService) Approve(ctx context.Context, versionID, reviewerID string) (*models.ProductVersion, error) {
	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(v.ProductID)
	defer unlock()

	if v, err = s.store.GetVersion(ctx, versionID); err != nil {
		return nil, err
	}
	if v.Status != models.StatusPendingApproval {
		return nil, fmt.Errorf("%w: cannot approve version %s in status %s", utils.ErrInvalidState, versionID, v.Status)
	}

	now := s.now()
	res, err := s.store.Approve(ctx, versionID, reviewerID, now)
	if err != nil {
		return nil, err
	}

	event := models.AuditEvent{
		ID:         uuid.NewString(),
		Action:     models.AuditApprove,
		ProductID:  res.Approved.ProductID,
		VersionID:  versionID,
		ReviewerID: reviewerID,
		FromStatus: models.StatusPendingApproval,
		ToStatus:   models.StatusApproved,
		CreatedAt:  now,
	}
	if res.Demoted != nil {
		event.DemotedVersionID = &res.Demoted.VersionID
	}

	s.refreshRate(ctx, res.Approved)

	logEvt := log.Info().
		Str("product_id", res.Approved.ProductID).
		Str("version_id", versionID).
		Int("version_number", res.Approved.VersionNumber).
		Str("reviewer_id", reviewerID)
	if res.Demoted != nil {
		logEvt = logEvt.Str("demoted_version_id", res.Demoted.VersionID)
	}
	logEvt.Msg("Product version approved")

	if err := s.record(ctx, event); err != nil {
		return nil, err
	}
	return res.Approved, nil
}

// Reject closes a pending version with a reason. It never touches the
// product's current version.
func (s *InventoryService) Reject(ctx context.Context, versionID, reason, reviewerID string) (*models.ProductVersion, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", utils.ErrValidation)
	}

	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(v.ProductID)
	defer unlock()

	if v, err = s.store.GetVersion(ctx, versionID); err != nil {
		return nil, err
	}
	if v.Status != models.StatusPendingApproval {
		return nil, fmt.Errorf("%w: cannot reject version %s in status %s", utils.ErrInvalidState, versionID, v.Status)
	}

	now := s.now()
	rejected, err := s.store.Reject(ctx, versionID, reason, now)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("product_id", rejected.ProductID).
		Str("version_id", versionID).
		Str("reviewer_id", reviewerID).
		Str("reason", reason).
		Msg("Product version rejected")

	err = s.record(ctx, models.AuditEvent{
		ID:         uuid.NewString(),
		Action:     models.AuditReject,
		ProductID:  rejected.ProductID,
		VersionID:  versionID,
		ReviewerID: reviewerID,
		FromStatus: models.StatusPendingApproval,
		ToStatus:   models.StatusRejected,
		Reason:     &reason,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

func (s *InventoryService) record(ctx context.Context, e models.AuditEvent) error {
	if err := s.audit.Record(ctx, e); err != nil {
		log.Error().Err(err).
			Str("version_id", e.VersionID).
			Str("action", string(e.Action)).
			Msg("Failed to record audit event")
		return fmt.Errorf("%s of version %s committed but audit record failed: %w", e.Action, e.VersionID, err)
	}
	return nil
}

// refreshRate writes the new current rate through to the cache. If that
// fails the entry is dropped so readers go back to the database.
func (s *InventoryService) refreshRate(ctx context.Context, v *models.ProductVersion) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, v.Rate()); err != nil {
		log.Warn().Err(err).Str("product_id", v.ProductID).Msg("Failed to write rate cache")
		if err := s.cache.Invalidate(ctx, v.ProductID); err != nil {
			log.Error().Err(err).Str("product_id", v.ProductID).Msg("Failed to invalidate rate cache")
		}
	}
}

// ResolveCurrentPrice returns the rate of the product's current approved
// version. ErrNotFound means no approved version exists and pricing may fall
// back to the declared cost. A kind that differs from the approved product
// is ErrValidation.
func (s *InventoryService) ResolveCurrentPrice(ctx context.Context, productID string, kind models.ProductKind) (*models.ResolvedRate, error) {
	if s.cache != nil {
		rate, ok, err := s.cache.Get(ctx, productID)
		if err != nil {
			log.Warn().Err(err).Str("product_id", productID).Msg("Rate cache read failed")
		} else if ok {
			return matchKind(rate, productID, kind)
		}
	}

	v, err := s.store.CurrentVersion(ctx, productID)
	if err != nil {
		return nil, err
	}
	rate := v.Rate()
	if s.cache != nil {
		if _, err := s.cache.PutIfAbsent(ctx, rate); err != nil {
			log.Warn().Err(err).Str("product_id", productID).Msg("Failed to fill rate cache")
		}
	}
	return matchKind(rate, productID, kind)
}

// WarmRateCache fills the cache with every current version without
// overwriting entries written by approvals. Returns how many were filled.
func (s *InventoryService) WarmRateCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	current, err := s.store.ListCurrent(ctx)
	if err != nil {
		return 0, err
	}
	filled := 0
	for i := range current {
		ok, err := s.cache.PutIfAbsent(ctx, current[i].Rate())
		if err != nil {
			return filled, err
		}
		if ok {
			filled++
		}
	}
	return filled, nil
}

func matchKind(rate *models.ResolvedRate, productID string, kind models.ProductKind) (*models.ResolvedRate, error) {
	if kind != "" && rate.Kind != kind {
		return nil, fmt.Errorf("%w: product %s is %s, not %s", utils.ErrValidation, productID, rate.Kind, kind)
	}
	return rate, nil
}

// GetVersion returns one version.
func (s *InventoryService) GetVersion(ctx context.Context, versionID string) (*models.ProductVersion, error) {
	return s.store.GetVersion(ctx, versionID)
}

// ListByOwner returns every version the owner submitted.
func (s *InventoryService) ListByOwner(ctx context.Context, ownerID string) ([]models.ProductVersion, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// ListVersions returns a product's history. ErrNotFound if it has none.
func (s *InventoryService) ListVersions(ctx context.Context, productID string) ([]models.ProductVersion, error) {
	versions, err := s.store.ListVersions(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: product %s", utils.ErrNotFound, productID)
	}
	return versions, nil
}

// ListPending returns the approval queue, oldest first.
func (s *InventoryService) ListPending(ctx context.Context) ([]models.ProductVersion, error) {
	return s.store.ListPending(ctx)
}

// ListCurrent returns the current approved version of every product.
func (s *InventoryService) ListCurrent(ctx context.Context) ([]models.ProductVersion, error) {
	return s.store.ListCurrent(ctx)
}

// AuditTrail returns the approve and reject events of one product.
func (s *InventoryService) AuditTrail(ctx context.Context, productID string) ([]models.AuditEvent, error) {
	return s.audit.ListByProduct(ctx, productID)
}

// validateDraft checks the rate fields required by the draft's kind and
// fills the accounting currency when none is given.
func (s *InventoryService) validateDraft(d *models.ProductDraft) error {
	if !d.Kind.Valid() {
		return fmt.Errorf("%w: unknown product kind %q", utils.ErrValidation, d.Kind)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", utils.ErrValidation)
	}
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	if d.Currency == "" {
		d.Currency = s.normalizer.AccountingCurrency()
	}
	if _, err := s.normalizer.Rate(d.Currency); err != nil {
		return err
	}

	switch d.Kind {
	case models.KindHotel, models.KindTransfer:
		if err := requireAmount("netCost", d.NetCost); err != nil {
			return err
		}
		if d.Kind == models.KindHotel {
			d.VehicleCapacity = nil
		} else if d.VehicleCapacity != nil && *d.VehicleCapacity < 1 {
			return fmt.Errorf("%w: vehicleCapacity must be at least 1", utils.ErrValidation)
		}
		d.AdultCost, d.ChildCost, d.TransferAddOn = nil, nil, nil

	case models.KindActivity:
		if err := requireAmount("adultCost", d.AdultCost); err != nil {
			return err
		}
		if d.ChildCost == nil {
			zero := decimal.Zero
			d.ChildCost = &zero
		} else if err := requireAmount("childCost", d.ChildCost); err != nil {
			return err
		}
		if a := d.TransferAddOn; a != nil {
			if a.SIC.Enabled && a.SIC.CostPerPerson.IsNegative() {
				return fmt.Errorf("%w: sic costPerPerson must not be negative", utils.ErrValidation)
			}
			if a.PVT.Enabled {
				if a.PVT.CostPerVehicle.IsNegative() {
					return fmt.Errorf("%w: pvt costPerVehicle must not be negative", utils.ErrValidation)
				}
				if a.PVT.VehicleCapacity < 1 {
					return fmt.Errorf("%w: pvt vehicleCapacity must be at least 1", utils.ErrValidation)
				}
			}
		}
		d.NetCost, d.VehicleCapacity = nil, nil
	}
	return nil
}

func requireAmount(field string, v *decimal.Decimal) error {
	if v == nil {
		return fmt.Errorf("%w: %s is required", utils.ErrValidation, field)
	}
	if v.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", utils.ErrValidation, field)
	}
	return nil
}
