package valuation

import (
	"time"
)

// ModelName identifies a valuation model.
type ModelName string

const (
	ModelDCF       ModelName = "DCF"
	ModelFCFE      ModelName = "FCFE"
	ModelDDM       ModelName = "DDM"
	ModelPEAverage ModelName = "PE_AVERAGE"
	ModelPEMedian  ModelName = "PE_MEDIAN"
	ModelPBAverage ModelName = "PB_AVERAGE"
	ModelGraham    ModelName = "GRAHAM"
)

// AllModels lists the models in reporting order.
var AllModels = []ModelName{ModelDCF, ModelFCFE, ModelDDM, ModelPEAverage, ModelPEMedian, ModelPBAverage, ModelGraham}

// SkipReason explains why a model produced no value.
type SkipReason string

const (
	SkipNonPositiveFCF        SkipReason = "non_positive_fcf"
	SkipNonPositiveFCFE       SkipReason = "non_positive_fcfe"
	SkipRateNotAboveGrowth    SkipReason = "discount_rate_not_above_growth"
	SkipNoShares              SkipReason = "no_shares_outstanding"
	SkipNoDividend            SkipReason = "no_dividend"
	SkipNonPositiveEPS        SkipReason = "non_positive_eps"
	SkipNonPositiveBookValue  SkipReason = "non_positive_book_value"
	SkipNoHistoricalMultiples SkipReason = "no_valid_historical_multiples"
	SkipNonPositiveValue      SkipReason = "non_positive_value"
	SkipNonFiniteValue        SkipReason = "non_finite_value"
	SkipInsufficientHistory   SkipReason = "insufficient_history"
)

// Skipped records a model that was not applicable to the inputs.
type Skipped struct {
	Model  ModelName  `json:"model"`
	Reason SkipReason `json:"reason"`
}

// MarginOfSafety is reported with the Graham Number.
type MarginOfSafety struct {
	Price          float64 `json:"price"`
	RespectsMargin bool    `json:"respects_margin"`
	// PctAboveMargin is how far the quoted price sits above the margin price; 0 when respected.
	PctAboveMargin float64 `json:"pct_above_margin"`
}

// ValuationResult is one model's per-share value.
type ValuationResult struct {
	Model                  ModelName          `json:"model"`
	IntrinsicValuePerShare float64            `json:"intrinsic_value_per_share"`
	UpsideDownsidePct      float64            `json:"upside_downside_pct"`
	SupportingFigures      map[string]float64 `json:"supporting_figures"`
	MarginOfSafety         *MarginOfSafety    `json:"margin_of_safety,omitempty"`
}

// GrowthEstimate is the outcome of the historical growth estimator.
type GrowthEstimate struct {
	Rate           float64 `json:"rate"`
	UsedDefault    bool    `json:"used_default"`
	ValidPairs     int     `json:"valid_pairs"`
	DiscardedPairs int     `json:"discarded_pairs"`
}

// GrowthSummary holds the estimates the models ran with.
type GrowthSummary struct {
	FCF      GrowthEstimate `json:"fcf"`
	FCFE     GrowthEstimate `json:"fcfe"`
	EPS      GrowthEstimate `json:"eps"`
	Dividend GrowthEstimate `json:"dividend"`
}

// Confidence bands the dispersion of the model values.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Verdict is ordered from most undervalued to most overvalued.
type Verdict string

const (
	VerdictStronglyUndervalued Verdict = "StronglyUndervalued"
	VerdictUndervalued         Verdict = "Undervalued"
	VerdictSlightlyUndervalued Verdict = "SlightlyUndervalued"
	VerdictSlightlyOvervalued  Verdict = "SlightlyOvervalued"
	VerdictOvervalued          Verdict = "Overvalued"
	VerdictStronglyOvervalued  Verdict = "StronglyOvervalued"
	VerdictNone                Verdict = "None"
)

// Consensus aggregates the applicable model values.
type Consensus struct {
	Available              bool       `json:"available"`
	Mean                   float64    `json:"mean"`
	Median                 float64    `json:"median"`
	StandardDeviation      float64    `json:"standard_deviation"`
	CoefficientOfVariation float64    `json:"coefficient_of_variation"`
	Confidence             Confidence `json:"confidence,omitempty"`
	AverageUpsidePct       float64    `json:"average_upside_pct"`
	MedianUpsidePct        float64    `json:"median_upside_pct"`
	Verdict                Verdict    `json:"verdict"`
	BasedOnModelCount      int        `json:"based_on_model_count"`
}

// Evaluation is the self-contained output of one Evaluate call.
type Evaluation struct {
	Ticker       string            `json:"ticker,omitempty"`
	CurrentPrice float64           `json:"current_price"`
	Assumptions  Assumptions       `json:"assumptions"`
	Results      []ValuationResult `json:"results"`
	Skipped      []Skipped         `json:"skipped"`
	Growth       GrowthSummary     `json:"growth"`
	Consensus    Consensus         `json:"consensus"`
	EvaluatedAt  time.Time         `json:"evaluated_at"`
}

// Result returns the result of the named model, if it was applicable.
func (e *Evaluation) Result(model ModelName) (ValuationResult, bool) {
	for _, r := range e.Results {
		if r.Model == model {
			return r, true
		}
	}
	return ValuationResult{}, false
}

// SkipReasonFor returns why the named model was skipped, if it was.
func (e *Evaluation) SkipReasonFor(model ModelName) (SkipReason, bool) {
	for _, s := range e.Skipped {
		if s.Model == model {
			return s.Reason, true
		}
	}
	return "", false
}
