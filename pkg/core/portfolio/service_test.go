package portfolio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrinsic_valuation/pkg/core/ingest"
	"intrinsic_valuation/pkg/core/store"
	"intrinsic_valuation/pkg/core/valuation"
	"intrinsic_valuation/pkg/models"
)

func history(ticker string) models.FinancialHistory {
	snap := func(fcf, eps float64) models.FinancialSnapshot {
		return models.FinancialSnapshot{
			FreeCashFlow:                 fcf,
			EPS:                          eps,
			WeightedAverageSharesDiluted: 1_000_000,
			TotalStockholdersEquity:      18_000_000,
			PriceEarningsRatio:           15,
			PriceToBookRatio:             2,
		}
	}
	return models.FinancialHistory{
		Ticker: ticker,
		Snapshots: []models.FinancialSnapshot{
			snap(1_000_000, 2.0), snap(950_000, 1.9), snap(900_000, 1.8), snap(850_000, 1.7),
		},
	}
}

type memPositions struct {
	portfolios []models.Portfolio
	positions  map[int64][]models.Position
}

func (m *memPositions) GetPortfolio(ctx context.Context, id int64) (models.Portfolio, error) {
	for _, p := range m.portfolios {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Portfolio{}, store.ErrNotFound
}

func (m *memPositions) ListActivePortfolios(ctx context.Context) ([]models.Portfolio, error) {
	return m.portfolios, nil
}

func (m *memPositions) ListPositions(ctx context.Context, id int64) ([]models.Position, error) {
	return m.positions[id], nil
}

type memSource struct {
	prices   map[string]float64
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *memSource) FetchQuote(ctx context.Context, ticker string) (ingest.Quote, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		old := s.peak.Load()
		if n <= old || s.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	price, ok := s.prices[ticker]
	if !ok {
		return ingest.Quote{}, &ingest.APIError{StatusCode: 404, Message: "unknown symbol", Endpoint: "/quote"}
	}
	return ingest.Quote{Symbol: ticker, Price: price}, nil
}

func (s *memSource) FetchHistory(ctx context.Context, ticker string) (models.FinancialHistory, error) {
	return history(ticker), nil
}

type memRuns struct {
	mu   sync.Mutex
	runs []*store.ValuationRun
}

func (r *memRuns) Save(ctx context.Context, run *store.ValuationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run.ID = [16]byte{byte(len(r.runs) + 1)}
	r.runs = append(r.runs, run)
	return nil
}

type fixedYield float64

func (y fixedYield) Yield(ctx context.Context) float64 { return float64(y) }

func newFixture() (*memPositions, *memSource) {
	positions := &memPositions{
		portfolios: []models.Portfolio{{ID: 1, Name: "Core", IsActive: true}},
		positions: map[int64][]models.Position{
			1: {
				{PortfolioID: 1, Ticker: "AAA", Shares: 10, AvgPrice: 20},
				{PortfolioID: 1, Ticker: "BBB", Shares: 5, AvgPrice: 30},
				{PortfolioID: 1, Ticker: "GONE", Shares: 2, AvgPrice: 10},
			},
		},
	}
	source := &memSource{prices: map[string]float64{"AAA": 25, "BBB": 40}}
	return positions, source
}

func TestRevalue_AggregatesPositions(t *testing.T) {
	positions, source := newFixture()
	runs := &memRuns{}
	svc := NewService(positions, source, mustEngine(t), WithRunSaver(runs), WithYieldSource(fixedYield(5.1)))

	summary, err := svc.Revalue(context.Background(), 1, valuation.DefaultAssumptions())
	require.NoError(t, err)
	require.Len(t, summary.Positions, 3)

	assert.Equal(t, 2, summary.ValuedPositions)
	assert.Equal(t, 1, summary.FailedPositions)
	assert.InDelta(t, 10*20+5*30+2*10, summary.CostBasis, 1e-9)
	assert.InDelta(t, 10*25+5*40, summary.MarketValue, 1e-9)
	assert.InDelta(t, summary.MarketValue, summary.ValuedMarketValue, 1e-9)

	// positions keep their input order
	aaa, bbb, gone := summary.Positions[0], summary.Positions[1], summary.Positions[2]
	assert.Equal(t, "AAA", aaa.Position.Ticker)
	assert.Contains(t, gone.Err, "unknown symbol")
	assert.Nil(t, gone.Evaluation)

	require.NotNil(t, aaa.Evaluation)
	assert.InDelta(t, 10*aaa.Evaluation.Consensus.Mean, aaa.IntrinsicValue, 1e-9)
	assert.InDelta(t, aaa.IntrinsicValue+bbb.IntrinsicValue, summary.IntrinsicValue, 1e-9)
	assert.NotEqual(t, valuation.VerdictNone, summary.Verdict)

	require.NotNil(t, aaa.Evaluation.Assumptions.BondYield)
	assert.Equal(t, 5.1, *aaa.Evaluation.Assumptions.BondYield)

	require.Len(t, runs.runs, 2)
	assert.Equal(t, int64(1), *runs.runs[0].PortfolioID)
	assert.NotEmpty(t, aaa.RunID)
	assert.Empty(t, gone.RunID)
}

func TestRevalue_BoundsConcurrency(t *testing.T) {
	positions, source := newFixture()
	for i := 0; i < 12; i++ {
		ticker := string(rune('C' + i))
		positions.positions[1] = append(positions.positions[1], models.Position{Ticker: ticker, Shares: 1})
		source.prices[ticker] = 10
	}
	svc := NewService(positions, source, mustEngine(t), WithConcurrency(3))

	_, err := svc.Revalue(context.Background(), 1, valuation.DefaultAssumptions())
	require.NoError(t, err)
	assert.LessOrEqual(t, source.peak.Load(), int32(3))
	assert.Greater(t, source.peak.Load(), int32(0))
}

func TestRevalue_InvalidAssumptions(t *testing.T) {
	positions, source := newFixture()
	svc := NewService(positions, source, mustEngine(t))

	a := valuation.DefaultAssumptions()
	a.DiscountRate = 0.02
	_, err := svc.Revalue(context.Background(), 1, a)
	assert.True(t, errors.Is(err, valuation.ErrInvalidAssumptions))
}

func TestRevalue_UnknownPortfolio(t *testing.T) {
	positions, source := newFixture()
	svc := NewService(positions, source, mustEngine(t))

	_, err := svc.Revalue(context.Background(), 42, valuation.DefaultAssumptions())
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestRevalue_Cancelled(t *testing.T) {
	positions, source := newFixture()
	svc := NewService(positions, source, mustEngine(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Revalue(ctx, 1, valuation.DefaultAssumptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRevalueAll(t *testing.T) {
	positions, source := newFixture()
	positions.portfolios = append(positions.portfolios, models.Portfolio{ID: 2, Name: "Empty", IsActive: true})
	svc := NewService(positions, source, mustEngine(t))

	summaries, err := svc.RevalueAll(context.Background(), valuation.DefaultAssumptions())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, valuation.VerdictNone, summaries[1].Verdict)
	assert.Zero(t, summaries[1].MarketValue)
}

func mustEngine(t *testing.T) *valuation.Engine {
	t.Helper()
	engine, err := valuation.NewEngine(valuation.DefaultParams())
	require.NoError(t, err)
	return engine
}
