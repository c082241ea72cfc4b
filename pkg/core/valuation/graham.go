package valuation

import (
	"math"

	"intrinsic_valuation/pkg/core/calc"
)

// GrahamInput holds the inputs of the growth-adjusted Graham Number
type GrahamInput struct {
	EPS               float64
	BookValuePerShare float64
	EPSGrowthRate     float64 // fraction, already bounded by the estimator
	BondYield         float64 // percent
	CurrentPrice      float64
}

// CalculateGraham averages the classic Graham Number with the growth formula.
//
// FORMULA:
//
//	Base   = sqrt(22.5 × EPS × BVPS)
//	Growth = EPS × (8.5 + 2 × g%) × 4.4 / Y
//	Value  = (Base + Growth) / 2
//	MoS    = 0.5 × Value
func CalculateGraham(input GrahamInput, p GrahamParams) (ValuationResult, SkipReason) {
	if input.EPS <= 0 {
		return ValuationResult{}, SkipNonPositiveEPS
	}
	if input.BookValuePerShare <= 0 {
		return ValuationResult{}, SkipNonPositiveBookValue
	}
	bondYield := input.BondYield
	if bondYield <= 0 {
		bondYield = p.BondYield
	}

	growthPct := input.EPSGrowthRate * 100
	base := math.Sqrt(p.BaseMultiplier * input.EPS * input.BookValuePerShare)
	growth := input.EPS * (p.NoGrowthPE + p.GrowthMultiplier*growthPct) * p.BaseYield / bondYield
	value := (base + growth) / 2

	mos := &MarginOfSafety{Price: p.MarginOfSafety * value}
	mos.RespectsMargin = input.CurrentPrice <= mos.Price
	if !mos.RespectsMargin && mos.Price > 0 {
		mos.PctAboveMargin = calc.UpsidePct(input.CurrentPrice, mos.Price)
	}

	return ValuationResult{
		Model:                  ModelGraham,
		IntrinsicValuePerShare: value,
		MarginOfSafety:         mos,
		SupportingFigures: map[string]float64{
			"eps":                 input.EPS,
			"bookValuePerShare":   input.BookValuePerShare,
			"baseValue":           base,
			"growthAdjustedValue": growth,
			"epsGrowthPct":        growthPct,
			"bondYield":           bondYield,
			"marginOfSafetyPrice": mos.Price,
		},
	}, ""
}
