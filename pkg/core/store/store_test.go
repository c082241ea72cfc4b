package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrinsic_valuation/pkg/core/ingest"
	"intrinsic_valuation/pkg/core/valuation"
	"intrinsic_valuation/pkg/models"
)

func sampleEvaluation() *valuation.Evaluation {
	return &valuation.Evaluation{
		Ticker:       "acme",
		CurrentPrice: 25,
		Results: []valuation.ValuationResult{
			{Model: valuation.ModelDCF, IntrinsicValuePerShare: 30, UpsideDownsidePct: 20},
		},
		Skipped: []valuation.Skipped{{Model: valuation.ModelDDM, Reason: valuation.SkipNoDividend}},
		Consensus: valuation.Consensus{
			Available: true, Mean: 30, Median: 30, Verdict: valuation.VerdictUndervalued, BasedOnModelCount: 1,
		},
	}
}

func TestValuationRepo_SaveAndList(t *testing.T) {
	db := newFakeDB()
	repo := NewValuationRepo(db)
	repo.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	run := &ValuationRun{Evaluation: sampleEvaluation(), Narrative: "cheap"}
	require.NoError(t, repo.Save(context.Background(), run))

	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, "ACME", run.Ticker)
	require.Len(t, db.execs, 1)
	args := db.execs[0].args
	assert.Equal(t, "ACME", args[1])
	assert.Equal(t, 25.0, args[3])
	assert.Equal(t, 30.0, *(args[4].(*float64)))
	assert.Equal(t, "Undervalued", args[5])

	// feed the stored row back through the read path
	db.on("FROM valuation_runs WHERE ticker", []any{run.ID, "ACME", nil, args[6], "cheap", run.CreatedAt})
	runs, err := repo.ListByTicker(context.Background(), "acme", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Nil(t, runs[0].PortfolioID)
	assert.Equal(t, "cheap", runs[0].Narrative)
	assert.Equal(t, valuation.VerdictUndervalued, runs[0].Evaluation.Consensus.Verdict)
	assert.Equal(t, valuation.SkipNoDividend, runs[0].Evaluation.Skipped[0].Reason)
	assert.Equal(t, []any{"ACME", 5}, db.queries[0].args)
}

func TestValuationRepo_GetNotFound(t *testing.T) {
	repo := NewValuationRepo(newFakeDB())
	_, err := repo.Get(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestValuationRepo_SaveErrors(t *testing.T) {
	db := newFakeDB()
	db.execErr = errors.New("connection reset")
	repo := NewValuationRepo(db)

	err := repo.Save(context.Background(), &ValuationRun{Evaluation: sampleEvaluation()})
	assert.ErrorContains(t, err, "connection reset")

	assert.Error(t, repo.Save(context.Background(), &ValuationRun{}))
}

func TestPortfolioRepo_ListPositions(t *testing.T) {
	db := newFakeDB()
	now := time.Now().UTC()
	db.on("FROM positions",
		[]any{int64(1), int64(7), "AAPL", 10.0, 150.0, "USD", "Apple", "Tech", now},
		[]any{int64(2), int64(7), "KO", 20.0, 55.5, "USD", "", "", now},
	)

	positions, err := NewPortfolioRepo(db).ListPositions(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "AAPL", positions[0].Ticker)
	assert.Equal(t, 1500.0, positions[0].CostBasis())
	assert.Equal(t, 55.5, positions[1].AvgPrice)
}

func TestPortfolioRepo_Portfolios(t *testing.T) {
	db := newFakeDB()
	now := time.Now().UTC()
	db.on("FROM portfolios", []any{int64(7), int64(1), "Core", "", true, now, now})
	repo := NewPortfolioRepo(db)

	list, err := repo.ListActivePortfolios(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Core", list[0].Name)

	p, err := repo.GetPortfolio(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, p.IsActive)

	_, err = NewPortfolioRepo(newFakeDB()).GetPortfolio(context.Background(), 99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPortfolioRepo_AddPosition(t *testing.T) {
	db := newFakeDB()
	repo := NewPortfolioRepo(db)

	require.NoError(t, repo.AddPosition(context.Background(), models.Position{PortfolioID: 7, Ticker: "msft", Shares: 3, AvgPrice: 300}))
	require.Len(t, db.execs, 2)
	assert.Contains(t, db.execs[0].sql, "ON CONFLICT (portfolio_id, ticker)")
	assert.Equal(t, "MSFT", db.execs[0].args[1])
	assert.Equal(t, "USD", db.execs[0].args[4])

	err := repo.AddPosition(context.Background(), models.Position{PortfolioID: 7, Ticker: "X"})
	assert.ErrorIs(t, err, ErrInvalidPosition)
	err = repo.AddPosition(context.Background(), models.Position{PortfolioID: 7, Ticker: " ", Shares: 1})
	assert.ErrorIs(t, err, ErrInvalidPosition)
	require.Len(t, db.execs, 2)

	db.execErr = &pgconn.PgError{Code: "23503"}
	err = repo.AddPosition(context.Background(), models.Position{PortfolioID: 99, Ticker: "X", Shares: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureSchema(t *testing.T) {
	db := newFakeDB()
	require.NoError(t, EnsureSchema(context.Background(), db))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS valuation_runs")
}

type stubSource struct {
	history models.FinancialHistory
	calls   int
}

func (s *stubSource) FetchHistory(ctx context.Context, ticker string) (models.FinancialHistory, error) {
	s.calls++
	return s.history, nil
}

func (s *stubSource) FetchQuote(ctx context.Context, ticker string) (ingest.Quote, error) {
	return ingest.Quote{Symbol: ticker, Price: 12}, nil
}

func TestCachedSource(t *testing.T) {
	db := newFakeDB()
	upstream := &stubSource{history: models.FinancialHistory{Ticker: "ACME", Snapshots: []models.FinancialSnapshot{{EPS: 2}}}}
	src := NewCachedSource(upstream, NewSnapshotCache(db), time.Hour, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return now }

	// miss: fetch upstream and write through
	h, err := src.FetchHistory(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)
	require.Len(t, db.execs, 1)
	assert.Equal(t, "ACME", db.execs[0].args[0])

	// hit: serve the stored JSON
	db.on("FROM financial_history_cache", []any{db.execs[0].args[1], now.Add(-time.Minute)})
	cached, err := src.FetchHistory(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)
	assert.Equal(t, h.Snapshots[0].EPS, cached.Snapshots[0].EPS)

	// stale: refetch
	now = now.Add(2 * time.Hour)
	_, err = src.FetchHistory(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)

	q, err := src.FetchQuote(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, 12.0, q.Price)
}
