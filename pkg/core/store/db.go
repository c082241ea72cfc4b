package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPosition is returned when a position fails validation.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrPoolNotInitialized is returned when InitDB has not succeeded.
	ErrPoolNotInitialized = errors.New("database pool not initialized")
)

// Querier is the subset of *pgxpool.Pool the repositories use.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Querier = (*pgxpool.Pool)(nil)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// InitDB initializes the database connection pool from a postgres URL.
func InitDB(ctx context.Context, dbURL string, maxConns int32) error {
	var err error
	once.Do(func() {
		if dbURL == "" {
			err = fmt.Errorf("DATABASE_URL not configured")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}
		if maxConns > 0 {
			config.MaxConns = maxConns
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			err = fmt.Errorf("failed to create pool: %w", err)
			return
		}
		if pingErr := pool.Ping(ctx); pingErr != nil {
			err = fmt.Errorf("failed to reach database: %w", pingErr)
		}
	})
	return err
}

// GetPool returns the database connection pool, or ErrPoolNotInitialized.
func GetPool() (*pgxpool.Pool, error) {
	if pool == nil {
		return nil, ErrPoolNotInitialized
	}
	return pool, nil
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}

// Schema creates the tables the valuation flow reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id             BIGSERIAL PRIMARY KEY,
	user_id        BIGINT NOT NULL,
	portfolio_name TEXT NOT NULL,
	description    TEXT,
	is_active      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS positions (
	id           BIGSERIAL PRIMARY KEY,
	portfolio_id BIGINT NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
	ticker       TEXT NOT NULL,
	shares       DOUBLE PRECISION NOT NULL,
	avg_price    DOUBLE PRECISION NOT NULL,
	currency     TEXT NOT NULL DEFAULT 'USD',
	company_name TEXT,
	sector       TEXT,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (portfolio_id, ticker)
);

CREATE TABLE IF NOT EXISTS valuation_runs (
	id             UUID PRIMARY KEY,
	ticker         TEXT NOT NULL,
	portfolio_id   BIGINT,
	current_price  DOUBLE PRECISION NOT NULL,
	consensus_mean DOUBLE PRECISION,
	verdict        TEXT NOT NULL,
	evaluation     JSONB NOT NULL,
	narrative      TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_valuation_runs_ticker ON valuation_runs (ticker, created_at DESC);

CREATE TABLE IF NOT EXISTS financial_history_cache (
	ticker     TEXT PRIMARY KEY,
	history    JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema applies Schema. Every statement is idempotent.
func EnsureSchema(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
