// Package valuation implements the multi-model intrinsic valuation engine.
// The engine is pure: it reads a FinancialHistory, never mutates it, and
// returns a self-contained Evaluation.
package valuation

import (
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"

	"intrinsic_valuation/pkg/core/calc"
	"intrinsic_valuation/pkg/models"
)

// Engine runs every model with a fixed set of Params.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	params Params
	logger arbor.ILogger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug traces.
func WithLogger(logger arbor.ILogger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the EvaluatedAt timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine validates params and builds an engine.
func NewEngine(params Params, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine params: %w", err)
	}
	e := &Engine{
		params: params,
		logger: arbor.NewNoOpLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

var defaultEngine = &Engine{params: DefaultParams(), logger: arbor.NewNoOpLogger(), now: time.Now}

// Evaluate runs every model with DefaultParams.
func Evaluate(history models.FinancialHistory, currentPrice float64, assumptions Assumptions) (*Evaluation, error) {
	return defaultEngine.Evaluate(history, currentPrice, assumptions)
}

// Params returns a copy of the engine constants.
func (e *Engine) Params() Params {
	return e.params
}

// Evaluate values the company behind history at currentPrice.
// Only malformed assumptions (or price) return an error; an inapplicable
// model is reported in Evaluation.Skipped.
func (e *Engine) Evaluate(history models.FinancialHistory, currentPrice float64, a Assumptions) (*Evaluation, error) {
	if err := validateInputs(a, currentPrice); err != nil {
		return nil, err
	}

	eval := &Evaluation{
		Ticker:       history.Ticker,
		CurrentPrice: currentPrice,
		Results:      []ValuationResult{},
		Skipped:      []Skipped{},
		EvaluatedAt:  e.now().UTC(),
	}

	latest, ok := history.Latest()
	if !ok {
		for _, m := range AllModels {
			eval.Skipped = append(eval.Skipped, Skipped{Model: m, Reason: SkipInsufficientHistory})
		}
		eval.Assumptions = a
		eval.Consensus = BuildConsensus(nil, currentPrice, e.params.Consensus)
		e.logger.Debug().Str("ticker", history.Ticker).Msg("No financial snapshots, every model skipped")
		return eval, nil
	}

	// 1. Growth estimates (overrides win over history)
	growth := e.estimateGrowth(history, a)
	eval.Growth = growth

	effective := a
	fcfGrowth := growth.FCF.Rate
	effective.FCFGrowthRate = &fcfGrowth
	fcfeGrowth := growth.FCFE.Rate
	effective.FCFEGrowthRate = &fcfeGrowth
	bondYield := e.params.Graham.BondYield
	if a.BondYield != nil {
		bondYield = *a.BondYield
	}
	effective.BondYield = &bondYield
	eval.Assumptions = effective

	shares := latest.Shares()
	bvps := latest.BookValuePerShare()

	admit := func(r ValuationResult, reason SkipReason) {
		if reason != "" {
			eval.Skipped = append(eval.Skipped, Skipped{Model: r.Model, Reason: reason})
			return
		}
		v := r.IntrinsicValuePerShare
		switch {
		case calc.IsPositiveFinite(v):
			r.UpsideDownsidePct = calc.UpsidePct(v, currentPrice)
			eval.Results = append(eval.Results, r)
		case math.IsNaN(v) || math.IsInf(v, 0):
			eval.Skipped = append(eval.Skipped, Skipped{Model: r.Model, Reason: SkipNonFiniteValue})
		default:
			eval.Skipped = append(eval.Skipped, Skipped{Model: r.Model, Reason: SkipNonPositiveValue})
		}
	}
	withModel := func(model ModelName) func(ValuationResult, SkipReason) {
		return func(r ValuationResult, reason SkipReason) {
			r.Model = model
			admit(r, reason)
		}
	}

	// 2. Cash-flow models
	withModel(ModelDCF)(CalculateDCF(DCFInput{
		LatestFCF:          latest.FreeCashFlow,
		GrowthRate:         fcfGrowth,
		DiscountRate:       a.DiscountRate,
		TerminalGrowthRate: a.TerminalGrowthRate,
		ProjectionYears:    a.ProjectionYears,
		Cash:               latest.CashAndCashEquivalents,
		TotalDebt:          latest.TotalDebt,
		SharesOutstanding:  shares,
	}))
	withModel(ModelFCFE)(CalculateFCFE(FCFEInput{
		LatestFCFE:         latest.FCFE(),
		GrowthRate:         fcfeGrowth,
		DiscountRate:       a.DiscountRate,
		TerminalGrowthRate: a.TerminalGrowthRate,
		ProjectionYears:    a.ProjectionYears,
		SharesOutstanding:  shares,
	}))

	// 3. Dividends
	withModel(ModelDDM)(CalculateDDM(DDMInput{
		DividendPerShare: e.dividendPerShare(history, latest),
		GrowthRate:       growth.Dividend.Rate,
		DiscountRate:     a.DiscountRate,
	}))

	// 4. Relative multiples
	results, skipped := CalculateMultiples(MultiplesInput{
		EPS:               latest.EPS,
		BookValuePerShare: bvps,
		HistoricalPE:      history.Series(func(s models.FinancialSnapshot) float64 { return s.PriceEarningsRatio }),
		HistoricalPB:      history.Series(func(s models.FinancialSnapshot) float64 { return s.PriceToBookRatio }),
	}, e.params.PEBand, e.params.PBBand)
	for _, r := range results {
		admit(r, "")
	}
	eval.Skipped = append(eval.Skipped, skipped...)

	// 5. Graham Number
	withModel(ModelGraham)(CalculateGraham(GrahamInput{
		EPS:               latest.EPS,
		BookValuePerShare: bvps,
		EPSGrowthRate:     growth.EPS.Rate,
		BondYield:         bondYield,
		CurrentPrice:      currentPrice,
	}, e.params.Graham))

	// 6. Consensus over the admitted values only
	eval.Consensus = BuildConsensus(eval.Results, currentPrice, e.params.Consensus)

	e.logger.Debug().
		Str("ticker", history.Ticker).
		Int("models", len(eval.Results)).
		Int("skipped", len(eval.Skipped)).
		Str("verdict", string(eval.Consensus.Verdict)).
		Msg("Valuation evaluated")

	return eval, nil
}

func (e *Engine) estimateGrowth(history models.FinancialHistory, a Assumptions) GrowthSummary {
	p := e.params
	var gs GrowthSummary

	if a.FCFGrowthRate != nil {
		gs.FCF = GrowthEstimate{Rate: *a.FCFGrowthRate}
	} else {
		gs.FCF = EstimateGrowth(history.Series(func(s models.FinancialSnapshot) float64 { return s.FreeCashFlow }),
			p.HistoryWindow, p.MinGrowthHistory, p.CashFlowGrowth)
	}
	if a.FCFEGrowthRate != nil {
		gs.FCFE = GrowthEstimate{Rate: *a.FCFEGrowthRate}
	} else {
		gs.FCFE = EstimateGrowth(history.Series(func(s models.FinancialSnapshot) float64 { return s.FCFE() }),
			p.HistoryWindow, p.MinGrowthHistory, p.CashFlowGrowth)
	}
	gs.EPS = EstimateGrowth(history.Series(func(s models.FinancialSnapshot) float64 { return s.EPS }),
		p.HistoryWindow, p.MinGrowthHistory, p.EPSGrowth)

	if g, ok := DividendGrowth(history.DividendAmounts(), p.DividendLookback); ok {
		gs.Dividend = GrowthEstimate{Rate: g, ValidPairs: 1}
	} else {
		gs.Dividend = GrowthEstimate{Rate: a.TerminalGrowthRate, UsedDefault: true}
	}

	if gs.FCF.UsedDefault || gs.FCFE.UsedDefault || gs.EPS.UsedDefault || gs.Dividend.UsedDefault {
		e.logger.Debug().
			Str("ticker", history.Ticker).
			Bool("fcf_default", gs.FCF.UsedDefault).
			Bool("fcfe_default", gs.FCFE.UsedDefault).
			Bool("eps_default", gs.EPS.UsedDefault).
			Bool("dividend_default", gs.Dividend.UsedDefault).
			Msg("Growth estimate fell back to default")
	}
	return gs
}

// dividendPerShare prefers the statement-derived DPS and falls back to the
// trailing sum of the newest payments.
func (e *Engine) dividendPerShare(history models.FinancialHistory, latest models.FinancialSnapshot) float64 {
	if latest.DividendPerShare > 0 {
		return latest.DividendPerShare
	}
	amounts := history.DividendAmounts()
	n := e.params.DividendLookback
	if len(amounts) < n {
		n = len(amounts)
	}
	var sum float64
	for _, d := range amounts[:n] {
		sum += d
	}
	return sum
}
