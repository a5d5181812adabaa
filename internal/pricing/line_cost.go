// Package pricing turns itinerary lines into costs and an itinerary into the
// authoritative price breakdown. Provisional estimates and final quotes both
// run through this package so the two figures can never diverge.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/tripquote_api/internal/models"
	"github.com/GTDGit/tripquote_api/internal/utils"
)

// DefaultVehicleCapacity applies to transfers whose product declares none.
const DefaultVehicleCapacity = 4

// LineCost is the total of one itinerary line. Quantity is what the caller
// should record on the line: rooms for hotels, vehicles for transfers.
type LineCost struct {
	Amount   decimal.Decimal
	Quantity int
}

// Calculator computes line costs. It is a pure value: no I/O, no state.
type Calculator struct {
	DefaultVehicleCapacity int
}

// NewCalculator returns a Calculator using capacity for transfers without a
// declared vehicle capacity. Values below 1 fall back to DefaultVehicleCapacity.
func NewCalculator(capacity int) Calculator {
	if capacity < 1 {
		capacity = DefaultVehicleCapacity
	}
	return Calculator{DefaultVehicleCapacity: capacity}
}

// ComputeLineCost prices a line against its resolved rate card. A nil rate
// means a manual line, priced from the caller-declared cost.
func (c Calculator) ComputeLineCost(rate *models.ResolvedRate, line models.ItineraryLine) (LineCost, error) {
	if line.Nights < 0 || line.Adults < 0 || line.Children < 0 || line.Quantity < 0 {
		return LineCost{}, fmt.Errorf("%w: negative quantity, nights or pax", utils.ErrValidation)
	}
	if rate == nil {
		return c.manual(line)
	}

	switch rate.Kind {
	case models.KindHotel:
		return hotel(rate.UnitCost, line), nil
	case models.KindTransfer:
		vehicles := vehiclesNeeded(line.Pax(), c.capacity(rate.VehicleCapacity))
		return LineCost{
			Amount:   rate.UnitCost.Mul(decimal.NewFromInt(int64(vehicles))),
			Quantity: vehicles,
		}, nil
	case models.KindActivity:
		return c.activity(rate, line)
	}
	return LineCost{}, fmt.Errorf("%w: unknown product kind %q", utils.ErrValidation, rate.Kind)
}

func (c Calculator) manual(line models.ItineraryLine) (LineCost, error) {
	if line.Cost.IsNegative() {
		return LineCost{}, fmt.Errorf("%w: declared cost must not be negative", utils.ErrValidation)
	}
	if line.Kind == models.KindHotel {
		return hotel(line.Cost, line), nil
	}
	return LineCost{Amount: line.Cost, Quantity: atLeastOne(line.Quantity)}, nil
}

func (c Calculator) activity(rate *models.ResolvedRate, line models.ItineraryLine) (LineCost, error) {
	base := decimal.Zero
	if !line.TransferOnly {
		base = rate.AdultCost.Mul(decimal.NewFromInt(int64(line.Adults))).
			Add(rate.ChildCost.Mul(decimal.NewFromInt(int64(line.Children))))
	}
	qty := atLeastOne(line.Quantity)
	addOn := rate.TransferAddOn

	switch mode := line.TransferMode.Normalize(); mode {
	case models.TransferNone:
		return LineCost{Amount: base, Quantity: qty}, nil
	case models.TransferSIC:
		if !addOn.SIC.Enabled {
			return LineCost{}, fmt.Errorf("%w: SIC transfer is not offered for product %s", utils.ErrValidation, rate.ProductID)
		}
		perPerson := addOn.SIC.CostPerPerson.Mul(decimal.NewFromInt(int64(line.Pax())))
		return LineCost{Amount: base.Add(perPerson), Quantity: qty}, nil
	case models.TransferPVT:
		if !addOn.PVT.Enabled {
			return LineCost{}, fmt.Errorf("%w: PVT transfer is not offered for product %s", utils.ErrValidation, rate.ProductID)
		}
		vehicles := vehiclesNeeded(line.Pax(), c.capacity(addOn.PVT.VehicleCapacity))
		perVehicle := addOn.PVT.CostPerVehicle.Mul(decimal.NewFromInt(int64(vehicles)))
		return LineCost{Amount: base.Add(perVehicle), Quantity: qty}, nil
	default:
		return LineCost{}, fmt.Errorf("%w: unknown transfer mode %q", utils.ErrValidation, mode)
	}
}

func (c Calculator) capacity(declared int) int {
	if declared > 0 {
		return declared
	}
	if c.DefaultVehicleCapacity > 0 {
		return c.DefaultVehicleCapacity
	}
	return DefaultVehicleCapacity
}

// hotel is unitCost × rooms × max(nights, 1).
func hotel(unit decimal.Decimal, line models.ItineraryLine) LineCost {
	rooms := atLeastOne(line.Quantity)
	nights := atLeastOne(line.Nights)
	return LineCost{
		Amount:   unit.Mul(decimal.NewFromInt(int64(rooms * nights))),
		Quantity: rooms,
	}
}

// vehiclesNeeded is ceil(pax / capacity).
func vehiclesNeeded(pax, capacity int) int {
	return (pax + capacity - 1) / capacity
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
