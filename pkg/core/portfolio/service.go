// Package portfolio revalues every position of a stored portfolio with the
// valuation engine.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"intrinsic_valuation/pkg/core/calc"
	"intrinsic_valuation/pkg/core/ingest"
	"intrinsic_valuation/pkg/core/store"
	"intrinsic_valuation/pkg/core/valuation"
	"intrinsic_valuation/pkg/models"
)

const defaultConcurrency = 4

// PositionStore is the read side of store.PortfolioRepo.
type PositionStore interface {
	GetPortfolio(ctx context.Context, id int64) (models.Portfolio, error)
	ListActivePortfolios(ctx context.Context) ([]models.Portfolio, error)
	ListPositions(ctx context.Context, portfolioID int64) ([]models.Position, error)
}

// RunSaver persists one evaluation per position.
type RunSaver interface {
	Save(ctx context.Context, run *store.ValuationRun) error
}

// YieldSource supplies the AAA bond yield when the caller leaves it unset.
type YieldSource interface {
	Yield(ctx context.Context) float64
}

// PositionValuation is the outcome for one holding. Err is set when the
// position could not be fetched or evaluated; the rest of the portfolio is
// still valued.
type PositionValuation struct {
	Position       models.Position       `json:"position"`
	CurrentPrice   float64               `json:"current_price"`
	MarketValue    float64               `json:"market_value"`
	IntrinsicValue float64               `json:"intrinsic_value"`
	Evaluation     *valuation.Evaluation `json:"evaluation,omitempty"`
	RunID          string                `json:"run_id,omitempty"`
	Err            string                `json:"error,omitempty"`
}

// Summary aggregates a revalued portfolio. Intrinsic totals only include
// positions whose consensus is available.
type Summary struct {
	Portfolio         models.Portfolio    `json:"portfolio"`
	Positions         []PositionValuation `json:"positions"`
	CostBasis         float64             `json:"cost_basis"`
	MarketValue       float64             `json:"market_value"`
	ValuedMarketValue float64             `json:"valued_market_value"`
	IntrinsicValue    float64             `json:"intrinsic_value"`
	UpsideDownsidePct float64             `json:"upside_downside_pct"`
	Verdict           valuation.Verdict   `json:"verdict"`
	ValuedPositions   int                 `json:"valued_positions"`
	FailedPositions   int                 `json:"failed_positions"`
	EvaluatedAt       time.Time           `json:"evaluated_at"`
}

// Service revalues portfolios.
type Service struct {
	positions   PositionStore
	source      ingest.Source
	engine      *valuation.Engine
	runs        RunSaver
	yields      YieldSource
	concurrency int
	logger      arbor.ILogger
	now         func() time.Time
}

type Option func(*Service)

// WithRunSaver persists every successful position evaluation.
func WithRunSaver(runs RunSaver) Option {
	return func(s *Service) { s.runs = runs }
}

// WithYieldSource fills Assumptions.BondYield when it is nil.
func WithYieldSource(y YieldSource) Option {
	return func(s *Service) { s.yields = y }
}

// WithConcurrency bounds the number of positions fetched at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithLogger(logger arbor.ILogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(positions PositionStore, source ingest.Source, engine *valuation.Engine, opts ...Option) *Service {
	s := &Service{
		positions:   positions,
		source:      source,
		engine:      engine,
		concurrency: defaultConcurrency,
		logger:      arbor.NewNoOpLogger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Revalue evaluates every position of the portfolio. Invalid assumptions fail
// the whole call; a failing position is reported in its PositionValuation.
func (s *Service) Revalue(ctx context.Context, portfolioID int64, a valuation.Assumptions) (*Summary, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	p, err := s.positions.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	positions, err := s.positions.ListPositions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	if a.BondYield == nil && s.yields != nil {
		y := s.yields.Yield(ctx)
		a.BondYield = &y
	}

	s.logger.Info().
		Int("portfolio_id", int(portfolioID)).
		Int("positions", len(positions)).
		Int("concurrency", s.concurrency).
		Msg("Revaluing portfolio")

	out := make([]PositionValuation, len(positions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, pos := range positions {
		g.Go(func() error {
			out[i] = s.valuePosition(gctx, p.ID, pos, a)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("portfolio %d revaluation aborted: %w", portfolioID, err)
	}

	summary := s.summarize(p, out)
	s.logger.Info().
		Int("portfolio_id", int(portfolioID)).
		Int("valued", summary.ValuedPositions).
		Int("failed", summary.FailedPositions).
		Str("verdict", string(summary.Verdict)).
		Msg("Portfolio revalued")
	return summary, nil
}

// RevalueAll revalues every active portfolio in turn. A portfolio that fails
// outright is logged and left out of the result.
func (s *Service) RevalueAll(ctx context.Context, a valuation.Assumptions) ([]*Summary, error) {
	portfolios, err := s.positions.ListActivePortfolios(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Summary
	for _, p := range portfolios {
		summary, err := s.Revalue(ctx, p.ID, a)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.logger.Error().Err(err).Int("portfolio_id", int(p.ID)).Msg("Portfolio revaluation failed")
			continue
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Service) valuePosition(ctx context.Context, portfolioID int64, pos models.Position, a valuation.Assumptions) PositionValuation {
	pv := PositionValuation{Position: pos}
	fail := func(err error) PositionValuation {
		s.logger.Warn().Err(err).Str("ticker", pos.Ticker).Msg("Position valuation failed")
		pv.Err = err.Error()
		return pv
	}

	quote, err := s.source.FetchQuote(ctx, pos.Ticker)
	if err != nil {
		return fail(fmt.Errorf("quote: %w", err))
	}
	pv.CurrentPrice = quote.Price
	pv.MarketValue = pos.Shares * quote.Price

	history, err := s.source.FetchHistory(ctx, pos.Ticker)
	if err != nil {
		return fail(fmt.Errorf("history: %w", err))
	}
	eval, err := s.engine.Evaluate(history, quote.Price, a)
	if err != nil {
		return fail(err)
	}
	pv.Evaluation = eval
	if eval.Consensus.Available {
		pv.IntrinsicValue = pos.Shares * eval.Consensus.Mean
	}

	if s.runs != nil {
		id := portfolioID
		run := &store.ValuationRun{Ticker: pos.Ticker, PortfolioID: &id, Evaluation: eval}
		if err := s.runs.Save(ctx, run); err != nil {
			s.logger.Warn().Err(err).Str("ticker", pos.Ticker).Msg("Failed to persist valuation run")
		} else {
			pv.RunID = run.ID.String()
		}
	}
	return pv
}

func (s *Service) summarize(p models.Portfolio, positions []PositionValuation) *Summary {
	summary := &Summary{
		Portfolio:   p,
		Positions:   positions,
		Verdict:     valuation.VerdictNone,
		EvaluatedAt: s.now().UTC(),
	}
	for _, pv := range positions {
		summary.CostBasis += pv.Position.CostBasis()
		summary.MarketValue += pv.MarketValue
		if pv.Err != "" {
			summary.FailedPositions++
			continue
		}
		if pv.Evaluation == nil || !pv.Evaluation.Consensus.Available {
			continue
		}
		summary.ValuedPositions++
		summary.ValuedMarketValue += pv.MarketValue
		summary.IntrinsicValue += pv.IntrinsicValue
	}
	if summary.ValuedPositions > 0 && summary.ValuedMarketValue > 0 {
		summary.UpsideDownsidePct = calc.UpsidePct(summary.IntrinsicValue, summary.ValuedMarketValue)
		summary.Verdict = valuation.VerdictFor(summary.UpsideDownsidePct, s.engine.Params().Consensus)
	}
	return summary
}
