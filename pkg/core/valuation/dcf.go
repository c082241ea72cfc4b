package valuation

import (
	"intrinsic_valuation/pkg/core/calc"
)

// DCFInput encapsulates all inputs required for an enterprise Discounted Cash Flow valuation
type DCFInput struct {
	LatestFCF          float64
	GrowthRate         float64 // g over the explicit horizon
	DiscountRate       float64 // r
	TerminalGrowthRate float64 // tg, must be < r
	ProjectionYears    int
	Cash               float64
	TotalDebt          float64
	SharesOutstanding  float64
}

// projection holds the discounted stream shared by DCF and FCFE.
type projection struct {
	SumPV           float64
	TerminalValue   float64
	TerminalValuePV float64
}

// projectStream runs the explicit-horizon projection plus a Gordon terminal value.
//
// FORMULA:
//
//	PV_t  = CF_0 (1+g)^t / (1+r)^t,  t = 1..N
//	TV    = CF_0 (1+g)^N (1+tg) / (r - tg)
//	TV_PV = TV / (1+r)^N
func projectStream(base, g, r, tg float64, years int) projection {
	flows := calc.ProjectSeries(base, g, years)
	finalFlow := base
	if len(flows) > 0 {
		finalFlow = flows[len(flows)-1]
	}
	tv := calc.TerminalValueGordonGrowth(finalFlow*(1+tg), r, tg)
	return projection{
		SumPV:           calc.PresentValueOfCashFlows(flows, r),
		TerminalValue:   tv,
		TerminalValuePV: calc.PresentValue(tv, r, years),
	}
}

// CalculateDCF performs the enterprise DCF:
// EV = ΣPV + TV_PV; Equity = EV + Cash - Debt; Value = Equity / Shares.
func CalculateDCF(input DCFInput) (ValuationResult, SkipReason) {
	// 1. Preconditions
	if input.LatestFCF <= 0 {
		return ValuationResult{}, SkipNonPositiveFCF
	}
	if input.DiscountRate <= input.TerminalGrowthRate {
		return ValuationResult{}, SkipRateNotAboveGrowth
	}
	if input.SharesOutstanding <= 0 {
		return ValuationResult{}, SkipNoShares
	}

	// 2. Project and discount
	p := projectStream(input.LatestFCF, input.GrowthRate, input.DiscountRate, input.TerminalGrowthRate, input.ProjectionYears)

	// 3. Bridge from enterprise to equity
	ev := p.SumPV + p.TerminalValuePV
	equity := ev + input.Cash - input.TotalDebt

	return ValuationResult{
		Model:                  ModelDCF,
		IntrinsicValuePerShare: equity / input.SharesOutstanding,
		SupportingFigures: map[string]float64{
			"latestFCF":         input.LatestFCF,
			"growthRate":        input.GrowthRate,
			"sumPV":             p.SumPV,
			"terminalValue":     p.TerminalValue,
			"terminalValuePV":   p.TerminalValuePV,
			"enterpriseValue":   ev,
			"cash":              input.Cash,
			"totalDebt":         input.TotalDebt,
			"equityValue":       equity,
			"sharesOutstanding": input.SharesOutstanding,
		},
	}, ""
}
