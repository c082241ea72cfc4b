package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"intrinsic_valuation/pkg/core/valuation"
)

// ValuationRun is one persisted evaluation.
type ValuationRun struct {
	ID          uuid.UUID             `json:"id"`
	Ticker      string                `json:"ticker"`
	PortfolioID *int64                `json:"portfolio_id,omitempty"`
	Evaluation  *valuation.Evaluation `json:"evaluation"`
	Narrative   string                `json:"narrative,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// ValuationRepo stores evaluations as JSONB rows.
type ValuationRepo struct {
	db  Querier
	now func() time.Time
}

// NewValuationRepo creates a new repository instance.
func NewValuationRepo(db Querier) *ValuationRepo {
	return &ValuationRepo{db: db, now: time.Now}
}

// Save inserts the run, assigning an ID and timestamp when missing.
func (r *ValuationRepo) Save(ctx context.Context, run *ValuationRun) error {
	if run.Evaluation == nil {
		return fmt.Errorf("valuation run has no evaluation")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now().UTC()
	}
	if run.Ticker == "" {
		run.Ticker = run.Evaluation.Ticker
	}
	run.Ticker = strings.ToUpper(run.Ticker)

	jsonData, err := json.Marshal(run.Evaluation)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation: %w", err)
	}

	var mean *float64
	if run.Evaluation.Consensus.Available {
		m := run.Evaluation.Consensus.Mean
		mean = &m
	}

	query := `
		INSERT INTO valuation_runs (id, ticker, portfolio_id, current_price, consensus_mean, verdict, evaluation, narrative, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.Exec(ctx, query,
		run.ID, run.Ticker, run.PortfolioID, run.Evaluation.CurrentPrice, mean,
		string(run.Evaluation.Consensus.Verdict), jsonData, run.Narrative, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save valuation run: %w", err)
	}
	return nil
}

const runColumns = `id, ticker, portfolio_id, evaluation, COALESCE(narrative, ''), created_at`

// Get loads one run by ID.
func (r *ValuationRepo) Get(ctx context.Context, id uuid.UUID) (*ValuationRun, error) {
	row := r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM valuation_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("valuation run %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return run, nil
}

// ListByTicker returns the newest runs for ticker.
func (r *ValuationRepo) ListByTicker(ctx context.Context, ticker string, limit int) ([]*ValuationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+runColumns+` FROM valuation_runs WHERE ticker = $1 ORDER BY created_at DESC LIMIT $2`,
		strings.ToUpper(ticker), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query valuation runs: %w", err)
	}
	defer rows.Close()

	var runs []*ValuationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read valuation runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*ValuationRun, error) {
	var (
		run      ValuationRun
		jsonData []byte
	)
	if err := row.Scan(&run.ID, &run.Ticker, &run.PortfolioID, &jsonData, &run.Narrative, &run.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan valuation run: %w", err)
	}
	var eval valuation.Evaluation
	if err := json.Unmarshal(jsonData, &eval); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
	}
	run.Evaluation = &eval
	return &run, nil
}
