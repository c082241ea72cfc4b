package valuation

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"intrinsic_valuation/pkg/api/httputil"
	"intrinsic_valuation/pkg/core/ingest"
	"intrinsic_valuation/pkg/core/narrative"
	"intrinsic_valuation/pkg/core/store"
	"intrinsic_valuation/pkg/core/valuation"
	"intrinsic_valuation/pkg/models"
)

const reportTimeout = 90 * time.Second

// RunStore is the subset of store.ValuationRepo the handlers use.
type RunStore interface {
	Save(ctx context.Context, run *store.ValuationRun) error
	Get(ctx context.Context, id uuid.UUID) (*store.ValuationRun, error)
	ListByTicker(ctx context.Context, ticker string, limit int) ([]*store.ValuationRun, error)
}

type YieldSource interface {
	Yield(ctx context.Context) float64
}

// Handler serves the valuation endpoints. Source, Runs, Narrator and Yields
// are optional; endpoints that need a missing one answer 503.
type Handler struct {
	Engine   *valuation.Engine
	Defaults valuation.Assumptions
	Source   ingest.Source
	Runs     RunStore
	Narrator *narrative.Narrator
	Yields   YieldSource
	Logger   arbor.ILogger
}

func NewHandler(engine *valuation.Engine, defaults valuation.Assumptions, logger arbor.ILogger) *Handler {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Handler{Engine: engine, Defaults: defaults, Logger: logger}
}

// Register mounts the endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/valuation/evaluate", h.HandleEvaluate)
	mux.HandleFunc("/api/valuation/report", h.HandleReport)
	mux.HandleFunc("/api/valuation/history", h.HandleHistory)
	mux.HandleFunc("/api/valuation/run", h.HandleRun)
}

type EvaluateRequest struct {
	History      models.FinancialHistory `json:"history"`
	CurrentPrice float64                 `json:"current_price"`
	Assumptions  valuation.Assumptions   `json:"assumptions"`
}

// HandleEvaluate values caller-supplied statements. Omitted assumption fields
// take the configured defaults.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	if httputil.CORS(w, r, http.MethodPost) || !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}

	req := EvaluateRequest{Assumptions: h.defaults()}
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	h.fillBondYield(r.Context(), &req.Assumptions)

	eval, err := h.Engine.Evaluate(req.History, req.CurrentPrice, req.Assumptions)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eval)
}

type ReportRequest struct {
	Ticker      string                `json:"ticker"`
	Assumptions valuation.Assumptions `json:"assumptions"`
	Narrate     bool                  `json:"narrate"`
	Persist     bool                  `json:"persist"`
}

type ReportResponse struct {
	Quote          ingest.Quote          `json:"quote"`
	Evaluation     *valuation.Evaluation `json:"evaluation"`
	Narrative      *narrative.Narrative  `json:"narrative,omitempty"`
	NarrativeError string                `json:"narrative_error,omitempty"`
	RunID          string                `json:"run_id,omitempty"`
}

// HandleReport fetches a ticker's statements and quote, evaluates them and
// optionally narrates and persists the result.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if httputil.CORS(w, r, http.MethodPost) || !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	if h.Source == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "financial data source not configured")
		return
	}

	req := ReportRequest{Assumptions: h.defaults()}
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		httputil.WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	if err := req.Assumptions.Validate(); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reportTimeout)
	defer cancel()

	var (
		quote   ingest.Quote
		history models.FinancialHistory
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		quote, err = h.Source.FetchQuote(gctx, req.Ticker)
		return err
	})
	g.Go(func() (err error) {
		history, err = h.Source.FetchHistory(gctx, req.Ticker)
		return err
	})
	if err := g.Wait(); err != nil {
		h.Logger.Warn().Err(err).Str("ticker", req.Ticker).Msg("Report fetch failed")
		httputil.WriteDomainError(w, err)
		return
	}

	h.fillBondYield(ctx, &req.Assumptions)
	eval, err := h.Engine.Evaluate(history, quote.Price, req.Assumptions)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	resp := ReportResponse{Quote: quote, Evaluation: eval}

	if req.Narrate {
		if h.Narrator == nil {
			resp.NarrativeError = "narrator not configured"
		} else if n, err := h.Narrator.Narrate(ctx, eval, history.Currency); err != nil {
			h.Logger.Warn().Err(err).Str("ticker", req.Ticker).Msg("Narration failed")
			resp.NarrativeError = err.Error()
		} else {
			resp.Narrative = n
		}
	}

	if req.Persist {
		if h.Runs == nil {
			httputil.WriteError(w, http.StatusServiceUnavailable, "persistence not configured")
			return
		}
		run := &store.ValuationRun{Ticker: req.Ticker, Evaluation: eval}
		if resp.Narrative != nil {
			run.Narrative = resp.Narrative.Markdown
		}
		if err := h.Runs.Save(ctx, run); err != nil {
			httputil.WriteDomainError(w, err)
			return
		}
		resp.RunID = run.ID.String()
	}

	h.Logger.Info().
		Str("ticker", req.Ticker).
		Int("models", len(eval.Results)).
		Str("verdict", string(eval.Consensus.Verdict)).
		Bool("persisted", resp.RunID != "").
		Msg("Valuation report served")
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleHistory lists persisted runs: GET ?ticker=X&limit=N.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if httputil.CORS(w, r, http.MethodGet) || !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	if h.Runs == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}
	ticker := strings.TrimSpace(r.URL.Query().Get("ticker"))
	if ticker == "" {
		httputil.WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			httputil.WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := h.Runs.ListByTicker(r.Context(), ticker, limit)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if runs == nil {
		runs = []*store.ValuationRun{}
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}

// HandleRun loads one persisted run: GET ?id=UUID.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	if httputil.CORS(w, r, http.MethodGet) || !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	if h.Runs == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "id must be a UUID")
		return
	}
	run, err := h.Runs.Get(r.Context(), id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, run)
}

// defaults copies h.Defaults so decoding a request never writes through its
// pointer fields.
func (h *Handler) defaults() valuation.Assumptions {
	a := h.Defaults
	clone := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	a.FCFGrowthRate = clone(a.FCFGrowthRate)
	a.FCFEGrowthRate = clone(a.FCFEGrowthRate)
	a.BondYield = clone(a.BondYield)
	return a
}

func (h *Handler) fillBondYield(ctx context.Context, a *valuation.Assumptions) {
	if a.BondYield == nil && h.Yields != nil {
		y := h.Yields.Yield(ctx)
		a.BondYield = &y
	}
}
