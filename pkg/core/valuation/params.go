package valuation

import (
	"fmt"
)

// GrowthBounds configures one variant of the historical growth estimator.
type GrowthBounds struct {
	FilterLow       float64 `yaml:"filter_low" json:"filter_low"`   // pairwise growth must be > FilterLow
	FilterHigh      float64 `yaml:"filter_high" json:"filter_high"` // and < FilterHigh
	ClampLow        float64 `yaml:"clamp_low" json:"clamp_low"`
	ClampHigh       float64 `yaml:"clamp_high" json:"clamp_high"`
	Default         float64 `yaml:"default" json:"default"`
	RequirePositive bool    `yaml:"require_positive" json:"require_positive"` // both values of a pair must be > 0
}

// MultipleBand is the open interval a historical ratio must fall in to count.
type MultipleBand struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// GrahamParams holds the Graham Number constants.
type GrahamParams struct {
	BaseMultiplier   float64 `yaml:"base_multiplier" json:"base_multiplier"`     // 22.5
	NoGrowthPE       float64 `yaml:"no_growth_pe" json:"no_growth_pe"`           // 8.5
	GrowthMultiplier float64 `yaml:"growth_multiplier" json:"growth_multiplier"` // 2
	BaseYield        float64 `yaml:"base_yield" json:"base_yield"`               // 4.4, AAA yield when the formula was published
	BondYield        float64 `yaml:"bond_yield" json:"bond_yield"`               // current AAA yield, percent
	MarginOfSafety   float64 `yaml:"margin_of_safety" json:"margin_of_safety"`   // fraction of value
}

// ConsensusParams holds the confidence bands and verdict thresholds (percent).
type ConsensusParams struct {
	HighConfidenceCV   float64 `yaml:"high_confidence_cv" json:"high_confidence_cv"`
	MediumConfidenceCV float64 `yaml:"medium_confidence_cv" json:"medium_confidence_cv"`

	StronglyUndervalued float64 `yaml:"strongly_undervalued" json:"strongly_undervalued"`
	Undervalued         float64 `yaml:"undervalued" json:"undervalued"`
	SlightlyUndervalued float64 `yaml:"slightly_undervalued" json:"slightly_undervalued"`
	SlightlyOvervalued  float64 `yaml:"slightly_overvalued" json:"slightly_overvalued"`
	Overvalued          float64 `yaml:"overvalued" json:"overvalued"`
}

// Params holds every tunable constant of the engine.
type Params struct {
	HistoryWindow    int `yaml:"history_window" json:"history_window"`
	MinGrowthHistory int `yaml:"min_growth_history" json:"min_growth_history"`
	DividendLookback int `yaml:"dividend_lookback" json:"dividend_lookback"`

	CashFlowGrowth GrowthBounds `yaml:"cash_flow_growth" json:"cash_flow_growth"`
	EPSGrowth      GrowthBounds `yaml:"eps_growth" json:"eps_growth"`

	PEBand MultipleBand `yaml:"pe_band" json:"pe_band"`
	PBBand MultipleBand `yaml:"pb_band" json:"pb_band"`

	Graham    GrahamParams    `yaml:"graham" json:"graham"`
	Consensus ConsensusParams `yaml:"consensus" json:"consensus"`
}

// DefaultParams returns the standard engine constants.
func DefaultParams() Params {
	return Params{
		HistoryWindow:    5,
		MinGrowthHistory: 3,
		DividendLookback: 4,
		CashFlowGrowth: GrowthBounds{
			FilterLow:  -0.5,
			FilterHigh: 2.0,
			ClampLow:   -0.10,
			ClampHigh:  1.00,
			Default:    0.05,
		},
		EPSGrowth: GrowthBounds{
			FilterLow:       -0.5,
			FilterHigh:      1.0,
			ClampLow:        0,
			ClampHigh:       0.30,
			Default:         0.07,
			RequirePositive: true,
		},
		PEBand: MultipleBand{Low: 0, High: 100},
		PBBand: MultipleBand{Low: 0, High: 20},
		Graham: GrahamParams{
			BaseMultiplier:   22.5,
			NoGrowthPE:       8.5,
			GrowthMultiplier: 2,
			BaseYield:        4.4,
			BondYield:        4.4,
			MarginOfSafety:   0.5,
		},
		Consensus: ConsensusParams{
			HighConfidenceCV:    15,
			MediumConfidenceCV:  30,
			StronglyUndervalued: 30,
			Undervalued:         15,
			SlightlyUndervalued: 0,
			SlightlyOvervalued:  -15,
			Overvalued:          -30,
		},
	}
}

// Validate checks the params are internally consistent.
func (p Params) Validate() error {
	if p.HistoryWindow < 2 {
		return fmt.Errorf("history_window must be at least 2, got %d", p.HistoryWindow)
	}
	if p.MinGrowthHistory < 2 || p.MinGrowthHistory > p.HistoryWindow {
		return fmt.Errorf("min_growth_history must be in [2, history_window], got %d", p.MinGrowthHistory)
	}
	if p.DividendLookback < 1 {
		return fmt.Errorf("dividend_lookback must be positive, got %d", p.DividendLookback)
	}
	for name, b := range map[string]GrowthBounds{"cash_flow_growth": p.CashFlowGrowth, "eps_growth": p.EPSGrowth} {
		if b.FilterLow >= b.FilterHigh {
			return fmt.Errorf("%s: filter band is empty", name)
		}
		if b.ClampLow > b.ClampHigh {
			return fmt.Errorf("%s: clamp_low above clamp_high", name)
		}
	}
	if p.PEBand.Low >= p.PEBand.High || p.PBBand.Low >= p.PBBand.High {
		return fmt.Errorf("multiple bands must be non-empty")
	}
	if p.Graham.BondYield <= 0 || p.Graham.BaseYield <= 0 {
		return fmt.Errorf("graham yields must be positive")
	}
	if p.Graham.MarginOfSafety <= 0 || p.Graham.MarginOfSafety > 1 {
		return fmt.Errorf("graham margin_of_safety must be in (0,1], got %v", p.Graham.MarginOfSafety)
	}
	c := p.Consensus
	if !(c.StronglyUndervalued > c.Undervalued && c.Undervalued > c.SlightlyUndervalued &&
		c.SlightlyUndervalued > c.SlightlyOvervalued && c.SlightlyOvervalued > c.Overvalued) {
		return fmt.Errorf("verdict thresholds must be strictly decreasing")
	}
	if c.HighConfidenceCV > c.MediumConfidenceCV {
		return fmt.Errorf("confidence bands out of order")
	}
	return nil
}
