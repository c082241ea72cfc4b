package config

import (
	"net/http"

	"intrinsic_valuation/pkg/api/httputil"
	"intrinsic_valuation/pkg/core/agent"
	"intrinsic_valuation/pkg/core/valuation"
)

type Response struct {
	ActiveProvider string                `json:"active_provider"`
	Available      []string              `json:"available"`
	Params         valuation.Params      `json:"params"`
	Assumptions    valuation.Assumptions `json:"default_assumptions"`
}

type SwitchRequest struct {
	Provider string `json:"provider"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	AgentMgr *agent.Manager
	Engine   *valuation.Engine
	Defaults valuation.Assumptions
}

// NewHandler creates a new config handler
func NewHandler(agentMgr *agent.Manager, engine *valuation.Engine, defaults valuation.Assumptions) *Handler {
	return &Handler{AgentMgr: agentMgr, Engine: engine, Defaults: defaults}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/config", h.HandleConfig)
	mux.HandleFunc("/api/config/switch", h.HandleSwitch)
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if httputil.CORS(w, r, http.MethodGet) || !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, Response{
		ActiveProvider: h.AgentMgr.GetActiveProvider(),
		Available:      h.AgentMgr.ProviderNames(),
		Params:         h.Engine.Params(),
		Assumptions:    h.Defaults,
	})
}

func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	if httputil.CORS(w, r, http.MethodPost) || !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req SwitchRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.AgentMgr.SetGlobalProvider(req.Provider); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"active_provider": req.Provider})
}
