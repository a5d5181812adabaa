package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a finalized itinerary price persisted at save time.
type Quote struct {
	ID           string          `db:"id" json:"id"`
	AgentID      string          `db:"agent_id" json:"agentId"`
	Title        string          `db:"title" json:"title"`
	PaxCount     int             `db:"pax_count" json:"paxCount"`
	Itinerary    Itinerary       `db:"itinerary" json:"itinerary"`
	Breakdown    PriceBreakdown  `db:"breakdown" json:"breakdown"`
	SellingPrice decimal.Decimal `db:"selling_price" json:"sellingPrice"`
	Currency     string          `db:"currency" json:"currency"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}
