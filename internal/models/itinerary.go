package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// TransferMode is the transfer option selected on an ACTIVITY line.
type TransferMode string

const (
	TransferNone TransferMode = "NONE"
	TransferSIC  TransferMode = "SIC"
	TransferPVT  TransferMode = "PVT"
)

// Normalize maps the empty value and the TICKET_ONLY alias onto NONE.
func (m TransferMode) Normalize() TransferMode {
	switch strings.ToUpper(string(m)) {
	case "", "NONE", "TICKET_ONLY":
		return TransferNone
	case "SIC":
		return TransferSIC
	case "PVT":
		return TransferPVT
	}
	return m
}

// ItineraryLine is one selected service inside a draft itinerary.
type ItineraryLine struct {
	// ProductID is empty for manual/custom lines.
	ProductID string      `json:"productId,omitempty"`
	Kind      ProductKind `json:"kind"`
	Name      string      `json:"name,omitempty"`

	Quantity int `json:"quantity"`
	Nights   int `json:"nights,omitempty"`
	Adults   int `json:"adults,omitempty"`
	Children int `json:"children,omitempty"`

	TransferMode TransferMode `json:"transferMode,omitempty"`
	// TransferOnly drops the base ticket of an ACTIVITY.
	TransferOnly bool `json:"transferOnly,omitempty"`

	// Cost is client-declared and only used when the product does not resolve.
	Cost     decimal.Decimal `json:"cost"`
	Currency string          `json:"currency,omitempty"`
}

// Pax returns the number of travellers on the line.
func (l *ItineraryLine) Pax() int {
	return l.Adults + l.Children
}

// Day groups the services of one itinerary day.
type Day struct {
	DayNumber     int             `json:"dayNumber"`
	DestinationID string          `json:"destinationId,omitempty"`
	Services      []ItineraryLine `json:"services"`
}

// Itinerary is a day-by-day snapshot stored as JSONB on persisted quotes.
type Itinerary []Day

// Value implements driver.Valuer.
func (it Itinerary) Value() (driver.Value, error) {
	return json.Marshal(it)
}

// Scan implements sql.Scanner.
func (it *Itinerary) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		if s, isStr := src.(string); isStr {
			b = []byte(s)
		} else {
			return errors.New("itinerary: unsupported column type")
		}
	}
	return json.Unmarshal(b, it)
}
