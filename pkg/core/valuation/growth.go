package valuation

import (
	"math"

	"intrinsic_valuation/pkg/core/calc"
)

// EstimateGrowth averages the period-over-period growth of a newest-first series.
//
// FORMULA: g = clamp( mean{ newer/older - 1 : pair valid and inside the filter band } )
//
// Only the first window values are used. Fewer than minHistory values, or no pair
// surviving the filter, yields bounds.Default with UsedDefault set. Never fails.
func EstimateGrowth(values []float64, window, minHistory int, bounds GrowthBounds) GrowthEstimate {
	if len(values) > window {
		values = values[:window]
	}
	if len(values) < minHistory {
		return GrowthEstimate{Rate: bounds.Default, UsedDefault: true}
	}

	var est GrowthEstimate
	rates := make([]float64, 0, len(values)-1)
	for i := 0; i+1 < len(values); i++ {
		newer, older := values[i], values[i+1]
		if newer == 0 || older == 0 {
			continue
		}
		if bounds.RequirePositive && (newer <= 0 || older <= 0) {
			continue
		}
		g := newer/older - 1
		if math.IsNaN(g) || math.IsInf(g, 0) || g <= bounds.FilterLow || g >= bounds.FilterHigh {
			est.DiscardedPairs++
			continue
		}
		rates = append(rates, g)
	}
	est.ValidPairs = len(rates)

	if len(rates) == 0 {
		est.Rate = bounds.Default
		est.UsedDefault = true
		return est
	}
	est.Rate = calc.Clamp(calc.Mean(rates), bounds.ClampLow, bounds.ClampHigh)
	return est
}

// DividendGrowth compares the newest lookback payments with the lookback before them.
//
// FORMULA: g = ( Σ newest n / Σ prior n )^(1/n) - 1
//
// ok is false when fewer than 2n records exist or the prior sum is not positive.
func DividendGrowth(dividends []float64, lookback int) (g float64, ok bool) {
	if lookback <= 0 || len(dividends) < 2*lookback {
		return 0, false
	}
	var recent, prior float64
	for i := 0; i < lookback; i++ {
		recent += dividends[i]
		prior += dividends[lookback+i]
	}
	if prior <= 0 || recent < 0 {
		return 0, false
	}
	g = math.Pow(recent/prior, 1/float64(lookback)) - 1
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return 0, false
	}
	return g, true
}
