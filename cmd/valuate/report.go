package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"intrinsic_valuation/pkg/core/utils"
	"intrinsic_valuation/pkg/core/valuation"
)

// writeReport prints the models table, the skipped models and the consensus.
func writeReport(w io.Writer, eval *valuation.Evaluation, currency string) {
	fmt.Fprintf(w, "%s @ %s\n\n", eval.Ticker, utils.FormatMoney(eval.CurrentPrice, currency))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MODEL\tVALUE/SHARE\tUPSIDE\t")
	for _, r := range eval.Results {
		fmt.Fprintf(tw, "%s\t%s\t%+.1f%%\t\n", r.Model, utils.FormatMoney(r.IntrinsicValuePerShare, currency), r.UpsideDownsidePct)
	}
	tw.Flush()

	if len(eval.Skipped) > 0 {
		fmt.Fprintln(w, "\nNot applicable:")
		for _, s := range eval.Skipped {
			fmt.Fprintf(w, "  %-10s %s\n", s.Model, s.Reason)
		}
	}

	if g, ok := eval.Result(valuation.ModelGraham); ok && g.MarginOfSafety != nil {
		m := g.MarginOfSafety
		fmt.Fprintf(w, "\nGraham margin of safety: buy below %s", utils.FormatMoney(m.Price, currency))
		if m.RespectsMargin {
			fmt.Fprintln(w, " (respected)")
		} else {
			fmt.Fprintf(w, " (price is %.1f%% above)\n", m.PctAboveMargin)
		}
	}

	fmt.Fprintf(w, "\nGrowth: FCF %s  FCFE %s  EPS %s  dividend %s\n",
		growth(eval.Growth.FCF), growth(eval.Growth.FCFE), growth(eval.Growth.EPS), growth(eval.Growth.Dividend))

	c := eval.Consensus
	if !c.Available {
		fmt.Fprintln(w, "\nConsensus: no applicable model")
		return
	}
	fmt.Fprintf(w, "\nConsensus (%d models): mean %s, median %s, std %s, CV %.1f%% (%s confidence)\n",
		c.BasedOnModelCount, utils.FormatMoney(c.Mean, currency), utils.FormatMoney(c.Median, currency),
		utils.FormatMoney(c.StandardDeviation, currency), c.CoefficientOfVariation, c.Confidence)
	fmt.Fprintf(w, "Upside: average %+.1f%%, median %+.1f%%\n", c.AverageUpsidePct, c.MedianUpsidePct)
	fmt.Fprintf(w, "Verdict: %s\n", c.Verdict)

	if len(eval.Results) > 1 {
		keys := make([]string, 0)
		for _, r := range eval.Results {
			if r.UpsideDownsidePct > 0 {
				keys = append(keys, string(r.Model))
			}
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "Models above price: %d of %d %v\n", len(keys), len(eval.Results), keys)
	}
}

func growth(g valuation.GrowthEstimate) string {
	s := fmt.Sprintf("%.1f%%", g.Rate*100)
	if g.UsedDefault {
		s += "*"
	}
	return s
}
