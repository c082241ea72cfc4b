package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configapi "intrinsic_valuation/pkg/api/config"
	portfolioapi "intrinsic_valuation/pkg/api/portfolio"
	valuationapi "intrinsic_valuation/pkg/api/valuation"
	"intrinsic_valuation/pkg/app"
	"intrinsic_valuation/pkg/core/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the yaml config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()
	logger := a.Logger

	mux := http.NewServeMux()

	valuationHandler := valuationapi.NewHandler(a.Engine, cfg.Assumptions, logger)
	valuationHandler.Source = a.Source
	valuationHandler.Narrator = a.Narrator
	valuationHandler.Yields = a.Yields
	if a.Runs != nil {
		valuationHandler.Runs = a.Runs
	}
	valuationHandler.Register(mux)

	var revaluer portfolioapi.Revaluer
	if a.Portfolio != nil {
		revaluer = a.Portfolio
	}
	portfolioHandler := portfolioapi.NewHandler(revaluer, cfg.Assumptions, logger)
	if a.Portfolios != nil {
		portfolioHandler.Positions = a.Portfolios
	}
	portfolioHandler.Register(mux)

	configapi.NewHandler(a.Agents, a.Engine, cfg.Assumptions).Register(mux)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s\n", time.Since(a.StartupTime).Round(time.Second))
	})

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logger.Info().Str("address", cfg.Server.Address).Msg("API server starting")
	logger.Info().Msg("  - POST /api/valuation/evaluate")
	logger.Info().Msg("  - POST /api/valuation/report")
	logger.Info().Msg("  - GET  /api/valuation/history?ticker=X")
	logger.Info().Msg("  - GET  /api/valuation/run?id=UUID")
	logger.Info().Msg("  - POST /api/portfolio/valuation")
	logger.Info().Msg("  - POST /api/portfolio/position")
	logger.Info().Msg("  - GET  /api/config")
	logger.Info().Msg("  - POST /api/config/switch")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}
