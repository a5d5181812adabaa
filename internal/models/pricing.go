package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PricingRule is the global markup and tax configuration. Admin-writable.
type PricingRule struct {
	ID                   int             `db:"id" json:"-"`
	CompanyMarkupPercent decimal.Decimal `db:"company_markup_percent" json:"companyMarkupPercent"`
	AgentMarkupPercent   decimal.Decimal `db:"agent_markup_percent" json:"agentMarkupPercent"`
	TaxPercent           decimal.Decimal `db:"tax_percent" json:"taxPercent"`
	UpdatedBy            *string         `db:"updated_by" json:"updatedBy,omitempty"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updatedAt"`
}

// LineSource tells whether a line was priced from the catalog or from the
// caller-declared cost.
type LineSource string

const (
	SourceCatalog LineSource = "CATALOG"
	SourceManual  LineSource = "MANUAL"
)

// LineResult is the priced outcome of a single itinerary line.
type LineResult struct {
	DayNumber     int             `json:"dayNumber"`
	Index         int             `json:"index"`
	ProductID     string          `json:"productId,omitempty"`
	VersionID     string          `json:"versionId,omitempty"`
	VersionNumber int             `json:"versionNumber,omitempty"`
	Kind          ProductKind     `json:"kind"`
	Source        LineSource      `json:"source"`
	Quantity      int             `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
}

// PriceBreakdown is the authoritative output of the pricing pipeline. Every
// figure except SellingPrice keeps full precision.
type PriceBreakdown struct {
	Currency           string          `json:"currency"`
	SupplierCost       decimal.Decimal `json:"supplierCost"`
	PlatformMargin     decimal.Decimal `json:"platformMargin"`
	ManualCost         decimal.Decimal `json:"manualCost"`
	NetCost            decimal.Decimal `json:"netCost"`
	AgentMarkupPercent decimal.Decimal `json:"agentMarkupPercent"`
	AgentMarkup        decimal.Decimal `json:"agentMarkup"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	Tax                decimal.Decimal `json:"tax"`
	SellingPrice       decimal.Decimal `json:"sellingPrice"`
	Lines              []LineResult    `json:"lines"`
	Warnings           []string        `json:"warnings,omitempty"`
}

// Value implements driver.Valuer.
func (b PriceBreakdown) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan implements sql.Scanner.
func (b *PriceBreakdown) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	}
	return errors.New("breakdown: unsupported column type")
}
