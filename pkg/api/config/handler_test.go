package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrinsic_valuation/pkg/core/agent"
	"intrinsic_valuation/pkg/core/llm"
	"intrinsic_valuation/pkg/core/valuation"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	mgr := agent.NewManagerWithProviders(agent.Config{ActiveProvider: "gemini"}, map[string]llm.Provider{
		"gemini":   &llm.StaticProvider{},
		"deepseek": &llm.StaticProvider{},
	}, nil)
	engine, err := valuation.NewEngine(valuation.DefaultParams())
	require.NoError(t, err)
	return NewHandler(mgr, engine, valuation.DefaultAssumptions())
}

func TestHandleConfig(t *testing.T) {
	h := newHandler(t)
	rec := httptest.NewRecorder()
	h.HandleConfig(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "gemini", resp.ActiveProvider)
	assert.ElementsMatch(t, []string{"gemini", "deepseek"}, resp.Available)
	assert.Equal(t, valuation.DefaultParams().Graham.BondYield, resp.Params.Graham.BondYield)
	assert.Equal(t, 5, resp.Assumptions.ProjectionYears)
}

func TestHandleSwitch(t *testing.T) {
	h := newHandler(t)

	rec := httptest.NewRecorder()
	h.HandleSwitch(rec, httptest.NewRequest(http.MethodPost, "/api/config/switch", strings.NewReader(`{"provider": "deepseek"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deepseek", h.AgentMgr.GetActiveProvider())

	rec = httptest.NewRecorder()
	h.HandleSwitch(rec, httptest.NewRequest(http.MethodPost, "/api/config/switch", strings.NewReader(`{"provider": "openai"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "deepseek", h.AgentMgr.GetActiveProvider())
}
