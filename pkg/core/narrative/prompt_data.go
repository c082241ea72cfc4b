package narrative

import (
	"fmt"

	"intrinsic_valuation/pkg/core/utils"
	"intrinsic_valuation/pkg/core/valuation"
)

type resultLine struct {
	Model  string
	Value  string
	Upside string
}

type skippedLine struct {
	Model  string
	Reason string
}

type consensusLine struct {
	Mean       string
	Median     string
	CV         string
	Confidence string
	Verdict    string
	Upside     string
}

type templateData struct {
	Ticker         string
	Price          string
	Results        []resultLine
	Skipped        []skippedLine
	FCFGrowth      string
	EPSGrowth      string
	DividendGrowth string
	Consensus      *consensusLine
}

func pct(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}

func rate(g valuation.GrowthEstimate) string {
	s := fmt.Sprintf("%.1f%%", g.Rate*100)
	if g.UsedDefault {
		s += " (default)"
	}
	return s
}

func promptData(eval *valuation.Evaluation, currency string) templateData {
	d := templateData{
		Ticker:         eval.Ticker,
		Price:          utils.FormatMoney(eval.CurrentPrice, currency),
		FCFGrowth:      rate(eval.Growth.FCF),
		EPSGrowth:      rate(eval.Growth.EPS),
		DividendGrowth: rate(eval.Growth.Dividend),
	}
	for _, r := range eval.Results {
		d.Results = append(d.Results, resultLine{
			Model:  string(r.Model),
			Value:  utils.FormatMoney(r.IntrinsicValuePerShare, currency),
			Upside: pct(r.UpsideDownsidePct),
		})
	}
	for _, s := range eval.Skipped {
		d.Skipped = append(d.Skipped, skippedLine{Model: string(s.Model), Reason: string(s.Reason)})
	}
	if c := eval.Consensus; c.Available {
		d.Consensus = &consensusLine{
			Mean:       utils.FormatMoney(c.Mean, currency),
			Median:     utils.FormatMoney(c.Median, currency),
			CV:         fmt.Sprintf("%.1f%%", c.CoefficientOfVariation),
			Confidence: string(c.Confidence),
			Verdict:    string(c.Verdict),
			Upside:     pct(c.AverageUpsidePct),
		}
	}
	return d
}
