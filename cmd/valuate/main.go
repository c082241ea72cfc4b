// Command valuate prints the multi-model valuation of one company, read from
// an Hjson file or fetched from FMP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"intrinsic_valuation/pkg/app"
	"intrinsic_valuation/pkg/core/config"
	"intrinsic_valuation/pkg/core/store"
	"intrinsic_valuation/pkg/core/utils"
	"intrinsic_valuation/pkg/core/valuation"
	"intrinsic_valuation/pkg/models"
)

// Input is the Hjson document accepted by -input.
type Input struct {
	CurrentPrice float64                 `json:"current_price"`
	Assumptions  valuation.Assumptions   `json:"assumptions"`
	History      models.FinancialHistory `json:"history"`
}

func loadInput(path string, defaults valuation.Assumptions) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, err
	}
	in := Input{Assumptions: defaults}
	if err := utils.DecodeHJSON(data, &in); err != nil {
		return Input{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the yaml config")
	inputPath := flag.String("input", "", "Hjson file with history, current_price and optional assumptions")
	ticker := flag.String("ticker", "", "ticker to fetch from FMP (with -fetch)")
	fetch := flag.Bool("fetch", false, "fetch statements and quote for -ticker")
	narrate := flag.Bool("narrate", false, "append the LLM narrative")
	persist := flag.Bool("persist", false, "store the run (needs DATABASE_URL)")
	asJSON := flag.Bool("json", false, "print the evaluation as JSON")
	discount := flag.Float64("discount", 0, "override discount rate")
	terminal := flag.Float64("terminal", 0, "override terminal growth rate")
	years := flag.Int("years", 0, "override projection years")
	flag.Parse()

	if err := run(*configPath, *inputPath, *ticker, *fetch, *narrate, *persist, *asJSON, *discount, *terminal, *years); err != nil {
		fmt.Fprintf(os.Stderr, "valuate: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, inputPath, ticker string, fetch, narrate, persist, asJSON bool, discount, terminal float64, years int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var in Input
	switch {
	case fetch:
		if ticker == "" {
			return fmt.Errorf("-fetch needs -ticker")
		}
		quote, err := a.Source.FetchQuote(ctx, ticker)
		if err != nil {
			return err
		}
		history, err := a.Source.FetchHistory(ctx, ticker)
		if err != nil {
			return err
		}
		in = Input{CurrentPrice: quote.Price, Assumptions: cfg.Assumptions, History: history}
	case inputPath != "":
		if in, err = loadInput(inputPath, cfg.Assumptions); err != nil {
			return err
		}
	default:
		return fmt.Errorf("either -input or -ticker with -fetch is required")
	}

	if discount > 0 {
		in.Assumptions.DiscountRate = discount
	}
	if terminal > 0 {
		in.Assumptions.TerminalGrowthRate = terminal
	}
	if years > 0 {
		in.Assumptions.ProjectionYears = years
	}
	if in.Assumptions.BondYield == nil {
		y := a.Yields.Yield(ctx)
		in.Assumptions.BondYield = &y
	}

	eval, err := a.Engine.Evaluate(in.History, in.CurrentPrice, in.Assumptions)
	if err != nil {
		return err
	}

	var narrativeMD string
	if narrate {
		n, err := a.Narrator.Narrate(ctx, eval, in.History.Currency)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Narration failed")
		} else {
			narrativeMD = n.Markdown
		}
	}

	if persist {
		if a.Runs == nil {
			return store.ErrPoolNotInitialized
		}
		run := &store.ValuationRun{Ticker: strings.ToUpper(eval.Ticker), Evaluation: eval, Narrative: narrativeMD}
		if err := a.Runs.Save(ctx, run); err != nil {
			return err
		}
		a.Logger.Info().Str("run_id", run.ID.String()).Msg("Valuation run stored")
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(eval)
	}
	writeReport(os.Stdout, eval, in.History.Currency)
	if narrativeMD != "" {
		fmt.Fprintf(os.Stdout, "\n%s\n", narrativeMD)
	}
	return nil
}
