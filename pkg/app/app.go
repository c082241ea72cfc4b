// Package app wires configuration into the services the binaries run.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"intrinsic_valuation/pkg/core/agent"
	"intrinsic_valuation/pkg/core/bondyield"
	"intrinsic_valuation/pkg/core/common"
	"intrinsic_valuation/pkg/core/config"
	"intrinsic_valuation/pkg/core/ingest"
	"intrinsic_valuation/pkg/core/narrative"
	"intrinsic_valuation/pkg/core/portfolio"
	"intrinsic_valuation/pkg/core/store"
	"intrinsic_valuation/pkg/core/valuation"
)

const bondYieldTTL = 12 * time.Hour

// App holds the long-lived services. Runs, Portfolios and Portfolio are nil
// when no database is configured.
type App struct {
	Config   *config.Config
	Logger   arbor.ILogger
	Engine   *valuation.Engine
	Source   ingest.Source
	Yields   *bondyield.Resolver
	Agents   *agent.Manager
	Narrator *narrative.Narrator

	Runs       *store.ValuationRepo
	Portfolios *store.PortfolioRepo
	Portfolio  *portfolio.Service

	StartupTime time.Time
}

// New builds the App. A configured database that cannot be reached is an
// error; an unconfigured one only disables persistence.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := common.NewLogger(cfg.Logging)
	a := &App{Config: cfg, Logger: logger, StartupTime: time.Now()}

	engine, err := valuation.NewEngine(cfg.Valuation, valuation.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	a.Engine = engine

	var yieldSource bondyield.Source
	if cfg.BondYield.Live {
		yieldSource = bondyield.NewFREDSource(cfg.BondYield.URL, time.Duration(cfg.BondYield.TimeoutSeconds)*time.Second)
	}
	a.Yields = bondyield.NewResolver(yieldSource, cfg.Valuation.Graham.BondYield, bondYieldTTL, logger)

	var source ingest.Source = ingest.NewFMPClient(cfg.FMP.APIKey,
		ingest.WithBaseURL(cfg.FMP.BaseURL),
		ingest.WithRateLimit(cfg.FMP.RateLimit),
		ingest.WithTimeout(time.Duration(cfg.FMP.TimeoutSeconds)*time.Second),
		ingest.WithHistoryLimit(cfg.FMP.HistoryYears),
		ingest.WithLogger(logger),
	)
	if cfg.FMP.APIKey == "" {
		logger.Warn().Msg("FMP_API_KEY not set, ticker fetches will be rejected upstream")
	}

	if cfg.Database.URL != "" {
		if err := store.InitDB(ctx, cfg.Database.URL, cfg.Database.MaxConns); err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		pool, err := store.GetPool()
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		a.Runs = store.NewValuationRepo(pool)
		a.Portfolios = store.NewPortfolioRepo(pool)
		if ttl := time.Duration(cfg.FMP.CacheTTLHours) * time.Hour; ttl > 0 {
			source = store.NewCachedSource(source, store.NewSnapshotCache(pool), ttl, logger)
		}
		logger.Info().Int("max_conns", int(cfg.Database.MaxConns)).Msg("Database connected")
	} else {
		logger.Warn().Msg("DATABASE_URL not set, persistence and portfolios disabled")
	}
	a.Source = source

	a.Agents = agent.NewManager(cfg.LLM, logger)
	tmpl := narrative.DefaultTemplate
	if cfg.Narrative.TemplatePath != "" {
		tmpl, err = narrative.LoadTemplate(cfg.Narrative.TemplatePath)
		if err != nil {
			return nil, err
		}
	}
	a.Narrator = narrative.NewNarrator(a.Agents, tmpl, logger)

	if a.Portfolios != nil {
		a.Portfolio = portfolio.NewService(a.Portfolios, a.Source, a.Engine,
			portfolio.WithRunSaver(a.Runs),
			portfolio.WithYieldSource(a.Yields),
			portfolio.WithConcurrency(cfg.Portfolio.Concurrency),
			portfolio.WithLogger(logger),
		)
	}

	logger.Info().
		Str("llm_provider", a.Agents.GetActiveProvider()).
		Bool("live_bond_yield", cfg.BondYield.Live).
		Bool("persistence", a.Runs != nil).
		Msg("Application initialised")
	return a, nil
}

func (a *App) Close() {
	if a.Runs != nil {
		store.Close()
	}
}
