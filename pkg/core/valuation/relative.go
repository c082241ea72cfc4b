package valuation

import (
	"intrinsic_valuation/pkg/core/calc"
)

// MultiplesInput holds the current per-share fundamentals and the historical ratios
type MultiplesInput struct {
	EPS               float64
	BookValuePerShare float64
	HistoricalPE      []float64 // any order
	HistoricalPB      []float64
}

// CalculateMultiples values the company at its own historical P/E and P/B.
//
// PE_AVERAGE = EPS × mean(P/E), PE_MEDIAN = EPS × median(P/E), PB_AVERAGE = BVPS × mean(P/B).
// The P/B median multiple is reported alongside PB_AVERAGE.
func CalculateMultiples(input MultiplesInput, peBand, pbBand MultipleBand) ([]ValuationResult, []Skipped) {
	var results []ValuationResult
	var skipped []Skipped

	// 1. Price / Earnings
	pes := calc.FilterOpen(input.HistoricalPE, peBand.Low, peBand.High)
	switch {
	case input.EPS <= 0:
		skipped = append(skipped,
			Skipped{Model: ModelPEAverage, Reason: SkipNonPositiveEPS},
			Skipped{Model: ModelPEMedian, Reason: SkipNonPositiveEPS})
	case len(pes) == 0:
		skipped = append(skipped,
			Skipped{Model: ModelPEAverage, Reason: SkipNoHistoricalMultiples},
			Skipped{Model: ModelPEMedian, Reason: SkipNoHistoricalMultiples})
	default:
		meanPE, medianPE := calc.Mean(pes), calc.Median(pes)
		figures := func(multiple float64) map[string]float64 {
			return map[string]float64{
				"eps":            input.EPS,
				"multiple":       multiple,
				"meanMultiple":   meanPE,
				"medianMultiple": medianPE,
				"observations":   float64(len(pes)),
			}
		}
		results = append(results,
			ValuationResult{Model: ModelPEAverage, IntrinsicValuePerShare: input.EPS * meanPE, SupportingFigures: figures(meanPE)},
			ValuationResult{Model: ModelPEMedian, IntrinsicValuePerShare: input.EPS * medianPE, SupportingFigures: figures(medianPE)},
		)
	}

	// 2. Price / Book
	pbs := calc.FilterOpen(input.HistoricalPB, pbBand.Low, pbBand.High)
	switch {
	case input.BookValuePerShare <= 0:
		skipped = append(skipped, Skipped{Model: ModelPBAverage, Reason: SkipNonPositiveBookValue})
	case len(pbs) == 0:
		skipped = append(skipped, Skipped{Model: ModelPBAverage, Reason: SkipNoHistoricalMultiples})
	default:
		meanPB, medianPB := calc.Mean(pbs), calc.Median(pbs)
		results = append(results, ValuationResult{
			Model:                  ModelPBAverage,
			IntrinsicValuePerShare: input.BookValuePerShare * meanPB,
			SupportingFigures: map[string]float64{
				"bookValuePerShare": input.BookValuePerShare,
				"multiple":          meanPB,
				"meanMultiple":      meanPB,
				"medianMultiple":    medianPB,
				"medianValue":       input.BookValuePerShare * medianPB,
				"observations":      float64(len(pbs)),
			},
		})
	}

	return results, skipped
}
