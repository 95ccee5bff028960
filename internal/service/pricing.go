package service

import (
	"github.com/shopspring/decimal"

	"github.com/nurpe/logistics-billing/internal/model"
)

// Price computes base + weight*weight_rate + volume*volume_rate rounded to
// cents. A nil tariff leaves the amount unset.
func Price(weight, volume decimal.Decimal, tariff *model.Tariff) *decimal.Decimal {
	if tariff == nil {
		return nil
	}
	amount := tariff.BaseRate.
		Add(weight.Mul(tariff.WeightRate)).
		Add(volume.Mul(tariff.VolumeRate)).
		Round(2)
	return &amount
}

// hasCents reports whether value fits a numeric(_,2) column unrounded.
func hasCents(value decimal.Decimal) bool {
	return value.Equal(value.Round(2))
}

func validateMeasures(weight, volume decimal.Decimal) error {
	if !weight.IsPositive() {
		return invalidf("weight must be greater than zero")
	}
	if !volume.IsPositive() {
		return invalidf("volume must be greater than zero")
	}
	if !hasCents(weight) || !hasCents(volume) {
		return invalidf("weight and volume allow at most two decimal places")
	}
	return nil
}
