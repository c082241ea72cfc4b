package valuation

// FCFEInput holds inputs for the Free Cash Flow to Equity model
type FCFEInput struct {
	LatestFCFE         float64 // FCF + net borrowings - |debt repayment|
	GrowthRate         float64
	DiscountRate       float64
	TerminalGrowthRate float64
	ProjectionYears    int
	SharesOutstanding  float64
}

// CalculateFCFE values equity directly from FCFE.
// Financing flows are already netted, so there is no cash/debt bridge.
func CalculateFCFE(input FCFEInput) (ValuationResult, SkipReason) {
	if input.LatestFCFE <= 0 {
		return ValuationResult{}, SkipNonPositiveFCFE
	}
	if input.DiscountRate <= input.TerminalGrowthRate {
		return ValuationResult{}, SkipRateNotAboveGrowth
	}
	if input.SharesOutstanding <= 0 {
		return ValuationResult{}, SkipNoShares
	}

	p := projectStream(input.LatestFCFE, input.GrowthRate, input.DiscountRate, input.TerminalGrowthRate, input.ProjectionYears)
	equity := p.SumPV + p.TerminalValuePV

	return ValuationResult{
		Model:                  ModelFCFE,
		IntrinsicValuePerShare: equity / input.SharesOutstanding,
		SupportingFigures: map[string]float64{
			"latestFCFE":        input.LatestFCFE,
			"growthRate":        input.GrowthRate,
			"sumPV":             p.SumPV,
			"terminalValue":     p.TerminalValue,
			"terminalValuePV":   p.TerminalValuePV,
			"equityValue":       equity,
			"sharesOutstanding": input.SharesOutstanding,
		},
	}, ""
}

// DDMInput holds inputs for the single-stage Dividend Discount Model
type DDMInput struct {
	DividendPerShare float64 // latest annual DPS
	GrowthRate       float64 // perpetual dividend growth
	DiscountRate     float64
}

// CalculateDDM applies the Gordon Growth Model.
//
// FORMULA: Value = D_0 (1+g) / (r - g), requires r > g
func CalculateDDM(input DDMInput) (ValuationResult, SkipReason) {
	if input.DividendPerShare <= 0 {
		return ValuationResult{}, SkipNoDividend
	}
	if input.DiscountRate <= input.GrowthRate {
		return ValuationResult{}, SkipRateNotAboveGrowth
	}

	nextDividend := input.DividendPerShare * (1 + input.GrowthRate)
	value := nextDividend / (input.DiscountRate - input.GrowthRate)

	return ValuationResult{
		Model:                  ModelDDM,
		IntrinsicValuePerShare: value,
		SupportingFigures: map[string]float64{
			"dividendPerShare": input.DividendPerShare,
			"nextDividend":     nextDividend,
			"growthRate":       input.GrowthRate,
			"discountRate":     input.DiscountRate,
		},
	}, ""
}
