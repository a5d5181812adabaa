package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func activityRate() *models.ResolvedRate {
	return &models.ResolvedRate{
		ProductID: "act-1",
		Kind:      models.KindActivity,
		AdultCost: dec("20"),
		ChildCost: dec("10"),
		TransferAddOn: models.TransferAddOn{
			SIC: models.SICAddOn{Enabled: true, CostPerPerson: dec("7.5")},
			PVT: models.PVTAddOn{Enabled: true, CostPerVehicle: dec("50"), VehicleCapacity: 4},
		},
	}
}

func TestHotelLineCost(t *testing.T) {
	calc := NewCalculator(4)
	rate := &models.ResolvedRate{Kind: models.KindHotel, UnitCost: dec("100")}

	got, err := calc.ComputeLineCost(rate, models.ItineraryLine{Kind: models.KindHotel, Quantity: 1, Nights: 3})
	require.NoError(t, err)
	assert.Equal(t, "300", got.Amount.String())
	assert.Equal(t, 1, got.Quantity)

	got, err = calc.ComputeLineCost(rate, models.ItineraryLine{Kind: models.KindHotel, Quantity: 2, Nights: 0})
	require.NoError(t, err)
	assert.Equal(t, "200", got.Amount.String(), "zero nights counts as one")
}

func TestTransferRoundsVehiclesUp(t *testing.T) {
	calc := NewCalculator(4)

	tests := []struct {
		name     string
		capacity int
		adults   int
		children int
		vehicles int
		amount   string
	}{
		{"five adults in fours", 4, 5, 0, 2, "160"},
		{"exactly full", 4, 2, 2, 1, "80"},
		{"product capacity wins", 7, 5, 2, 1, "80"},
		{"default capacity", 0, 9, 0, 3, "240"},
		{"no pax", 4, 0, 0, 0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate := &models.ResolvedRate{Kind: models.KindTransfer, UnitCost: dec("80"), VehicleCapacity: tt.capacity}
			got, err := calc.ComputeLineCost(rate, models.ItineraryLine{Kind: models.KindTransfer, Adults: tt.adults, Children: tt.children})
			require.NoError(t, err)
			assert.Equal(t, tt.vehicles, got.Quantity)
			assert.Equal(t, tt.amount, got.Amount.String())
		})
	}
}

func TestActivityModes(t *testing.T) {
	calc := NewCalculator(4)
	line := models.ItineraryLine{Kind: models.KindActivity, Adults: 2, Children: 1}

	line.TransferMode = models.TransferPVT
	got, err := calc.ComputeLineCost(activityRate(), line)
	require.NoError(t, err)
	assert.Equal(t, "100", got.Amount.String(), "ticket 50 + one vehicle 50")

	line.TransferMode = models.TransferSIC
	got, err = calc.ComputeLineCost(activityRate(), line)
	require.NoError(t, err)
	assert.Equal(t, "72.5", got.Amount.String())

	line.TransferMode = "TICKET_ONLY"
	got, err = calc.ComputeLineCost(activityRate(), line)
	require.NoError(t, err)
	assert.Equal(t, "50", got.Amount.String())

	line.TransferMode = models.TransferPVT
	line.TransferOnly = true
	got, err = calc.ComputeLineCost(activityRate(), line)
	require.NoError(t, err)
	assert.Equal(t, "50", got.Amount.String(), "transfer-only add-on has no base ticket")
}

func TestActivityRejectsDisabledMode(t *testing.T) {
	calc := NewCalculator(4)
	rate := activityRate()
	rate.TransferAddOn.SIC.Enabled = false

	_, err := calc.ComputeLineCost(rate, models.ItineraryLine{Kind: models.KindActivity, Adults: 1, TransferMode: models.TransferSIC})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = calc.ComputeLineCost(rate, models.ItineraryLine{Kind: models.KindActivity, Adults: 1, TransferMode: "HELICOPTER"})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestManualLines(t *testing.T) {
	calc := NewCalculator(4)

	got, err := calc.ComputeLineCost(nil, models.ItineraryLine{Kind: models.KindHotel, Quantity: 2, Nights: 3, Cost: dec("45.5")})
	require.NoError(t, err)
	assert.Equal(t, "273", got.Amount.String())

	got, err = calc.ComputeLineCost(nil, models.ItineraryLine{Kind: models.KindTransfer, Adults: 9, Cost: dec("120")})
	require.NoError(t, err)
	assert.Equal(t, "120", got.Amount.String(), "manual non-hotel cost is taken as declared")

	_, err = calc.ComputeLineCost(nil, models.ItineraryLine{Kind: models.KindActivity, Cost: dec("-1")})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestComputeLineCostIsDeterministic(t *testing.T) {
	calc := NewCalculator(4)
	line := models.ItineraryLine{Kind: models.KindActivity, Adults: 3, Children: 2, TransferMode: models.TransferSIC}

	first, err := calc.ComputeLineCost(activityRate(), line)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := calc.ComputeLineCost(activityRate(), line)
		require.NoError(t, err)
		assert.Equal(t, first.Amount.String(), again.Amount.String())
	}
}
