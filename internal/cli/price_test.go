package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tripquote_api/internal/models"
)

const testCatalog = `[
  {"productId": "trf-airport", "kind": "TRANSFER", "name": "Airport transfer", "netCost": "30", "vehicleCapacity": 4},
  {"productId": "htl-river", "kind": "HOTEL", "name": "River Hotel", "currency": "EUR", "netCost": "100"}
]`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runPriceCommand(t *testing.T, args ...string) (*models.PriceBreakdown, error) {
	t.Helper()
	cmd := PriceCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	var b models.PriceBreakdown
	require.NoError(t, json.Unmarshal(out.Bytes(), &b))
	return &b, nil
}

func TestPriceCommandTransferAndManualLine(t *testing.T) {
	itinerary := writeFile(t, "trip.json", `[
	  {"dayNumber": 1, "services": [
	    {"productId": "trf-airport", "kind": "TRANSFER", "quantity": 1},
	    {"kind": "ACTIVITY", "name": "Dinner", "cost": "20"}
	  ]}
	]`)

	b, err := runPriceCommand(t,
		"--catalog", writeFile(t, "catalog.json", testCatalog),
		"--itinerary", itinerary,
		"--pax", "5",
	)
	require.NoError(t, err)

	require.Len(t, b.Lines, 2)
	assert.Equal(t, models.SourceCatalog, b.Lines[0].Source)
	assert.Equal(t, 2, b.Lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(60).Equal(b.SupplierCost), b.SupplierCost.String())
	assert.True(t, decimal.NewFromInt(20).Equal(b.ManualCost), b.ManualCost.String())
	// 60 + 6 margin + 20 manual = 86; tax 4.3; 90.3 rounds up.
	assert.True(t, decimal.NewFromInt(91).Equal(b.SellingPrice), b.SellingPrice.String())
}

func TestPriceCommandConvertsForeignCurrency(t *testing.T) {
	itinerary := writeFile(t, "trip.json", `[
	  {"dayNumber": 1, "services": [{"productId": "htl-river", "kind": "HOTEL", "quantity": 1, "nights": 2}]}
	]`)

	b, err := runPriceCommand(t,
		"--catalog", writeFile(t, "catalog.json", testCatalog),
		"--itinerary", itinerary,
		"--rate", "EUR=1.08",
	)
	require.NoError(t, err)

	assert.Equal(t, "USD", b.Currency)
	assert.True(t, decimal.NewFromInt(216).Equal(b.SupplierCost), b.SupplierCost.String())
	assert.True(t, decimal.NewFromInt(250).Equal(b.SellingPrice), b.SellingPrice.String())
}

func TestPriceCommandRejectsUnknownCatalogCurrency(t *testing.T) {
	itinerary := writeFile(t, "trip.json", `[]`)

	_, err := runPriceCommand(t,
		"--catalog", writeFile(t, "catalog.json", testCatalog),
		"--itinerary", itinerary,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "htl-river")
}

func TestPriceCommandValidatesFlags(t *testing.T) {
	catalog := writeFile(t, "catalog.json", `[]`)
	itinerary := writeFile(t, "trip.json", `[]`)

	_, err := runPriceCommand(t, "--catalog", catalog, "--itinerary", itinerary, "--tax", "-1")
	require.Error(t, err)

	_, err = runPriceCommand(t, "--catalog", catalog, "--itinerary", itinerary, "--rate", "EUR")
	require.Error(t, err)

	b, err := runPriceCommand(t, "--catalog", catalog, "--itinerary", itinerary)
	require.NoError(t, err)
	assert.True(t, b.SellingPrice.IsZero())
}
