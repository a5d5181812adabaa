package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ProductKind enumerates the kinds of catalog products.
type ProductKind string

const (
	KindHotel    ProductKind = "HOTEL"
	KindActivity ProductKind = "ACTIVITY"
	KindTransfer ProductKind = "TRANSFER"
)

// Valid reports whether k is a known product kind.
func (k ProductKind) Valid() bool {
	switch k {
	case KindHotel, KindActivity, KindTransfer:
		return true
	}
	return false
}

// VersionStatus is the approval state of a ProductVersion.
type VersionStatus string

const (
	StatusPendingApproval VersionStatus = "PENDING_APPROVAL"
	StatusApproved        VersionStatus = "APPROVED"
	StatusRejected        VersionStatus = "REJECTED"
)

// SICAddOn is the shared (per-person) transfer option of an activity.
type SICAddOn struct {
	Enabled       bool            `json:"enabled"`
	CostPerPerson decimal.Decimal `json:"costPerPerson"`
}

// PVTAddOn is the private (per-vehicle) transfer option of an activity.
type PVTAddOn struct {
	Enabled         bool            `json:"enabled"`
	CostPerVehicle  decimal.Decimal `json:"costPerVehicle"`
	VehicleCapacity int             `json:"vehicleCapacity"`
}

// TransferAddOn holds the two independently toggleable transfer modes an
// ACTIVITY can be sold with. Stored as JSONB.
type TransferAddOn struct {
	SIC SICAddOn `json:"sic"`
	PVT PVTAddOn `json:"pvt"`
}

// Value implements driver.Valuer.
func (a TransferAddOn) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *TransferAddOn) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = TransferAddOn{}
		return nil
	}
	return errors.New("transfer_addon: unsupported column type")
}

// ProductVersion is one submitted revision of a catalog product. It is the
// unit that gets approved and priced. Only the inventory service mutates it.
type ProductVersion struct {
	VersionID     string      `db:"version_id" json:"versionId"`
	ProductID     string      `db:"product_id" json:"productId"`
	VersionNumber int         `db:"version_number" json:"versionNumber"`
	OwnerID       string      `db:"owner_id" json:"ownerId"`
	Kind          ProductKind `db:"kind" json:"kind"`
	DestinationID string      `db:"destination_id" json:"destinationId"`
	Name          string      `db:"name" json:"name"`
	Description   string      `db:"description" json:"description"`
	Currency      string      `db:"currency" json:"currency"`

	// HOTEL and TRANSFER
	NetCost         decimal.NullDecimal `db:"net_cost" json:"netCost"`
	VehicleCapacity *int                `db:"vehicle_capacity" json:"vehicleCapacity,omitempty"`

	// ACTIVITY
	AdultCost     decimal.NullDecimal `db:"adult_cost" json:"adultCost"`
	ChildCost     decimal.NullDecimal `db:"child_cost" json:"childCost"`
	TransferAddOn *TransferAddOn      `db:"transfer_addon" json:"transferAddOn,omitempty"`

	Status          VersionStatus `db:"status" json:"status"`
	RejectionReason *string       `db:"rejection_reason" json:"rejectionReason,omitempty"`
	IsCurrent       bool          `db:"is_current" json:"isCurrent"`
	ApprovedBy      *string       `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time    `db:"approved_at" json:"approvedAt,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
}

// Rate projects the price-relevant fields of v.
func (v *ProductVersion) Rate() *ResolvedRate {
	r := &ResolvedRate{
		ProductID:     v.ProductID,
		VersionID:     v.VersionID,
		VersionNumber: v.VersionNumber,
		Kind:          v.Kind,
		Currency:      v.Currency,
		UnitCost:      v.NetCost.Decimal,
		AdultCost:     v.AdultCost.Decimal,
		ChildCost:     v.ChildCost.Decimal,
	}
	if v.VehicleCapacity != nil {
		r.VehicleCapacity = *v.VehicleCapacity
	}
	if v.TransferAddOn != nil {
		r.TransferAddOn = *v.TransferAddOn
	}
	return r
}

// ResolvedRate is the rate card of a product's current approved version.
type ResolvedRate struct {
	ProductID     string          `json:"productId"`
	VersionID     string          `json:"versionId"`
	VersionNumber int             `json:"versionNumber"`
	Kind          ProductKind     `json:"kind"`
	Currency      string          `json:"currency"`
	UnitCost      decimal.Decimal `json:"unitCost"`
	// VehicleCapacity of a TRANSFER; zero means the configured default.
	VehicleCapacity int             `json:"vehicleCapacity"`
	AdultCost       decimal.Decimal `json:"adultCost"`
	ChildCost       decimal.Decimal `json:"childCost"`
	TransferAddOn   TransferAddOn   `json:"transferAddOn"`
}

// ProductDraft is what an operator or supplier submits. An empty ProductID
// creates a new product; otherwise the draft edits the product's latest version.
type ProductDraft struct {
	ProductID       string           `json:"productId"`
	Kind            ProductKind      `json:"kind" binding:"required"`
	DestinationID   string           `json:"destinationId"`
	Name            string           `json:"name" binding:"required"`
	Description     string           `json:"description"`
	Currency        string           `json:"currency"`
	NetCost         *decimal.Decimal `json:"netCost"`
	VehicleCapacity *int             `json:"vehicleCapacity"`
	AdultCost       *decimal.Decimal `json:"adultCost"`
	ChildCost       *decimal.Decimal `json:"childCost"`
	TransferAddOn   *TransferAddOn   `json:"transferAddOn"`
}

// Apply copies the draft's descriptive and rate fields onto v.
func (d *ProductDraft) Apply(v *ProductVersion) {
	v.Kind = d.Kind
	v.DestinationID = d.DestinationID
	v.Name = d.Name
	v.Description = d.Description
	v.Currency = d.Currency
	v.NetCost = nullDecimal(d.NetCost)
	v.VehicleCapacity = d.VehicleCapacity
	v.AdultCost = nullDecimal(d.AdultCost)
	v.ChildCost = nullDecimal(d.ChildCost)
	v.TransferAddOn = d.TransferAddOn
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
