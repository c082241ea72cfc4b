package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ternarybob/arbor"

	"intrinsic_valuation/pkg/core/ingest"
	"intrinsic_valuation/pkg/models"
)

// SnapshotCache keeps the last fetched FinancialHistory per ticker.
type SnapshotCache struct {
	db Querier
}

func NewSnapshotCache(db Querier) *SnapshotCache {
	return &SnapshotCache{db: db}
}

// Get returns the cached history when it is younger than maxAge.
// A miss is (nil, nil).
func (c *SnapshotCache) Get(ctx context.Context, ticker string, maxAge time.Duration, now time.Time) (*models.FinancialHistory, error) {
	var (
		jsonData  []byte
		fetchedAt time.Time
	)
	err := c.db.QueryRow(ctx,
		`SELECT history, fetched_at FROM financial_history_cache WHERE ticker = $1`,
		strings.ToUpper(ticker)).Scan(&jsonData, &fetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history cache: %w", err)
	}
	if now.Sub(fetchedAt) > maxAge {
		return nil, nil
	}

	var h models.FinancialHistory
	if err := json.Unmarshal(jsonData, &h); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached history: %w", err)
	}
	return &h, nil
}

// Put upserts the history for its ticker.
func (c *SnapshotCache) Put(ctx context.Context, h models.FinancialHistory, fetchedAt time.Time) error {
	jsonData, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	_, err = c.db.Exec(ctx, `
		INSERT INTO financial_history_cache (ticker, history, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker) DO UPDATE SET
			history = EXCLUDED.history,
			fetched_at = EXCLUDED.fetched_at`,
		strings.ToUpper(h.Ticker), jsonData, fetchedAt)
	if err != nil {
		return fmt.Errorf("failed to write history cache: %w", err)
	}
	return nil
}

// CachedSource serves histories from the cache and refreshes them from the
// upstream source once they are older than ttl. Quotes always go upstream.
type CachedSource struct {
	upstream ingest.Source
	cache    *SnapshotCache
	ttl      time.Duration
	logger   arbor.ILogger
	now      func() time.Time
}

var _ ingest.Source = (*CachedSource)(nil)

func NewCachedSource(upstream ingest.Source, cache *SnapshotCache, ttl time.Duration, logger arbor.ILogger) *CachedSource {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &CachedSource{upstream: upstream, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

func (s *CachedSource) FetchHistory(ctx context.Context, ticker string) (models.FinancialHistory, error) {
	now := s.now()
	cached, err := s.cache.Get(ctx, ticker, s.ttl, now)
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("History cache read failed")
	}
	if cached != nil {
		return *cached, nil
	}

	h, err := s.upstream.FetchHistory(ctx, ticker)
	if err != nil {
		return models.FinancialHistory{}, err
	}
	if err := s.cache.Put(ctx, h, now); err != nil {
		s.logger.Warn().Err(err).Str("ticker", ticker).Msg("History cache write failed")
	}
	return h, nil
}

func (s *CachedSource) FetchQuote(ctx context.Context, ticker string) (ingest.Quote, error) {
	return s.upstream.FetchQuote(ctx, ticker)
}
