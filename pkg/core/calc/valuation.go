// Package calc provides deterministic financial calculations shared by the valuation models.
// This file implements the discounting primitives.
package calc

import (
	"math"
)

// =============================================================================
// DISCOUNTING
// =============================================================================

// PresentValue calculates PV of a single cash flow.
//
// FORMULA: PV = CF / (1 + r)^t
func PresentValue(cashFlow, discountRate float64, periods int) float64 {
	if periods < 0 {
		return 0
	}
	return cashFlow / math.Pow(1+discountRate, float64(periods))
}

// PresentValueOfCashFlows calculates PV of a series of cash flows.
//
// FORMULA: PV = Σ [ CF_t / (1 + r)^t ]
//
// Cash flows are assumed to be at end of each period (ordinary annuity).
func PresentValueOfCashFlows(cashFlows []float64, discountRate float64) float64 {
	var pv float64
	for t, cf := range cashFlows {
		pv += cf / math.Pow(1+discountRate, float64(t+1))
	}
	return pv
}

// ProjectGrowth compounds a base amount forward.
//
// FORMULA: Amount_t = Amount_0 × (1 + g)^t
func ProjectGrowth(base, growthRate float64, periods int) float64 {
	return base * math.Pow(1+growthRate, float64(periods))
}

// ProjectSeries returns Amount_1 .. Amount_n for a constant growth rate.
func ProjectSeries(base, growthRate float64, periods int) []float64 {
	if periods <= 0 {
		return nil
	}
	out := make([]float64, periods)
	for t := 1; t <= periods; t++ {
		out[t-1] = ProjectGrowth(base, growthRate, t)
	}
	return out
}

// TerminalValueGordonGrowth calculates terminal value using Gordon Growth Model.
//
// FORMULA: TV = CF_{t+1} / (r - g)
//
// Where:
//   - CF_{t+1} = Next period's cash flow (after forecast horizon)
//   - r = Discount rate (WACC or cost of equity)
//   - g = Long-run growth rate (must be < r)
func TerminalValueGordonGrowth(nextPeriodCF, discountRate, growthRate float64) float64 {
	if discountRate <= growthRate {
		return 0 // Invalid: growth must be less than discount rate
	}
	return nextPeriodCF / (discountRate - growthRate)
}

// UpsidePct expresses a value relative to a reference price.
//
// FORMULA: Upside = (V - P) × 100 / P
//
// The multiplication happens before the division so round thresholds (e.g. 130 vs 100)
// land exactly on 30.
func UpsidePct(value, price float64) float64 {
	if price == 0 {
		return 0
	}
	return (value - price) * 100 / price
}

// IsPositiveFinite reports whether v is a usable per-share value.
func IsPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
