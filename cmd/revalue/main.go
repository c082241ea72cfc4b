// Command revalue values every position of every active portfolio and stores
// one run per position. Intended for a daily cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intrinsic_valuation/pkg/app"
	"intrinsic_valuation/pkg/core/config"
	"intrinsic_valuation/pkg/core/portfolio"
	"intrinsic_valuation/pkg/core/store"
	"intrinsic_valuation/pkg/core/utils"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the yaml config")
	portfolioID := flag.Int64("portfolio", 0, "revalue only this portfolio")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall deadline")
	flag.Parse()

	if err := run(*configPath, *portfolioID, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "revalue: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, portfolioID int64, timeout time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Portfolio == nil {
		return store.ErrPoolNotInitialized
	}

	started := time.Now()
	var summaries []*portfolio.Summary
	if portfolioID > 0 {
		s, err := a.Portfolio.Revalue(ctx, portfolioID, cfg.Assumptions)
		if err != nil {
			return err
		}
		summaries = append(summaries, s)
	} else if summaries, err = a.Portfolio.RevalueAll(ctx, cfg.Assumptions); err != nil {
		return err
	}

	for _, s := range summaries {
		fmt.Println(summaryLine(s))
	}
	a.Logger.Info().
		Int("portfolios", len(summaries)).
		Str("elapsed", time.Since(started).Round(time.Millisecond).String()).
		Msg("Revaluation complete")
	return nil
}

func summaryLine(s *portfolio.Summary) string {
	return fmt.Sprintf("%-20s positions=%d valued=%d failed=%d market=%s intrinsic=%s upside=%+.1f%% verdict=%s",
		s.Portfolio.Name, len(s.Positions), s.ValuedPositions, s.FailedPositions,
		utils.FormatMoney(s.MarketValue, ""), utils.FormatMoney(s.IntrinsicValue, ""),
		s.UpsideDownsidePct, s.Verdict)
}
