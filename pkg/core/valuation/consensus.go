package valuation

import (
	"intrinsic_valuation/pkg/core/calc"
)

// BuildConsensus aggregates the applicable results against the quoted price.
// An empty input yields Available=false and VerdictNone.
func BuildConsensus(results []ValuationResult, currentPrice float64, p ConsensusParams) Consensus {
	if len(results) == 0 {
		return Consensus{Verdict: VerdictNone}
	}

	values := make([]float64, len(results))
	for i, r := range results {
		values[i] = r.IntrinsicValuePerShare
	}

	c := Consensus{
		Available:         true,
		Mean:              calc.Mean(values),
		Median:            calc.Median(values),
		StandardDeviation: calc.PopulationStdDev(values),
		BasedOnModelCount: len(values),
	}
	if c.Mean != 0 {
		c.CoefficientOfVariation = c.StandardDeviation / c.Mean * 100
	}
	c.Confidence = confidenceFor(c.CoefficientOfVariation, p)
	c.AverageUpsidePct = calc.UpsidePct(c.Mean, currentPrice)
	c.MedianUpsidePct = calc.UpsidePct(c.Median, currentPrice)
	c.Verdict = VerdictFor(c.AverageUpsidePct, p)
	return c
}

func confidenceFor(cv float64, p ConsensusParams) Confidence {
	switch {
	case cv < p.HighConfidenceCV:
		return ConfidenceHigh
	case cv < p.MediumConfidenceCV:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// VerdictFor maps an upside percentage to a verdict. Every threshold is strict.
func VerdictFor(upsidePct float64, p ConsensusParams) Verdict {
	switch {
	case upsidePct > p.StronglyUndervalued:
		return VerdictStronglyUndervalued
	case upsidePct > p.Undervalued:
		return VerdictUndervalued
	case upsidePct > p.SlightlyUndervalued:
		return VerdictSlightlyUndervalued
	case upsidePct > p.SlightlyOvervalued:
		return VerdictSlightlyOvervalued
	case upsidePct > p.Overvalued:
		return VerdictOvervalued
	default:
		return VerdictStronglyOvervalued
	}
}
