package portfolio

import (
	"context"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"intrinsic_valuation/pkg/api/httputil"
	"intrinsic_valuation/pkg/core/portfolio"
	"intrinsic_valuation/pkg/core/valuation"
	"intrinsic_valuation/pkg/models"
)

// Revaluer is satisfied by *portfolio.Service.
type Revaluer interface {
	Revalue(ctx context.Context, portfolioID int64, a valuation.Assumptions) (*portfolio.Summary, error)
}

// PositionWriter is satisfied by *store.PortfolioRepo.
type PositionWriter interface {
	AddPosition(ctx context.Context, p models.Position) error
}

type Handler struct {
	Service   Revaluer
	Positions PositionWriter
	Defaults  valuation.Assumptions
	Logger    arbor.ILogger
}

func NewHandler(service Revaluer, defaults valuation.Assumptions, logger arbor.ILogger) *Handler {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Handler{Service: service, Defaults: defaults, Logger: logger}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/portfolio/valuation", h.HandleValuation)
	mux.HandleFunc("/api/portfolio/position", h.HandlePosition)
}

type ValuationRequest struct {
	PortfolioID int64                  `json:"portfolio_id"`
	Assumptions *valuation.Assumptions `json:"assumptions,omitempty"`
}

// HandleValuation revalues every position of a portfolio.
func (h *Handler) HandleValuation(w http.ResponseWriter, r *http.Request) {
	if httputil.CORS(w, r, http.MethodPost) || !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	if h.Service == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "portfolio store not configured")
		return
	}

	var req ValuationRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.PortfolioID <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "portfolio_id is required")
		return
	}
	a := h.Defaults
	if req.Assumptions != nil {
		a = *req.Assumptions
	}

	summary, err := h.Service.Revalue(r.Context(), req.PortfolioID, a)
	if err != nil {
		h.Logger.Warn().Err(err).Int("portfolio_id", int(req.PortfolioID)).Msg("Portfolio valuation failed")
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// PositionRequest adds shares to a portfolio. Buying a ticker already held
// merges into the existing position at a share-weighted average price.
type PositionRequest struct {
	PortfolioID int64   `json:"portfolio_id"`
	Ticker      string  `json:"ticker"`
	Shares      float64 `json:"shares"`
	AvgPrice    float64 `json:"avg_price"`
	Currency    string  `json:"currency,omitempty"`
	CompanyName string  `json:"company_name,omitempty"`
	Sector      string  `json:"sector,omitempty"`
}

// HandlePosition records a purchase into a portfolio.
func (h *Handler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	if httputil.CORS(w, r, http.MethodPost) || !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	if h.Positions == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "portfolio store not configured")
		return
	}

	var req PositionRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.PortfolioID <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "portfolio_id is required")
		return
	}

	pos := models.Position{
		PortfolioID: req.PortfolioID,
		Ticker:      strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Shares:      req.Shares,
		AvgPrice:    req.AvgPrice,
		Currency:    strings.ToUpper(req.Currency),
		CompanyName: req.CompanyName,
		Sector:      req.Sector,
	}
	if pos.Currency == "" {
		pos.Currency = "USD"
	}
	if err := h.Positions.AddPosition(r.Context(), pos); err != nil {
		h.Logger.Warn().Err(err).Int("portfolio_id", int(req.PortfolioID)).Str("ticker", pos.Ticker).Msg("Add position failed")
		httputil.WriteDomainError(w, err)
		return
	}
	h.Logger.Info().Int("portfolio_id", int(req.PortfolioID)).Str("ticker", pos.Ticker).Float64("shares", pos.Shares).Msg("Position added")
	httputil.WriteJSON(w, http.StatusCreated, pos)
}
