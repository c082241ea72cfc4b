package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrinsic_valuation/pkg/core/ingest"
	"intrinsic_valuation/pkg/core/store"
	"intrinsic_valuation/pkg/core/valuation"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("load: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("quote: %w", ingest.ErrNoData), http.StatusNotFound},
		{&ingest.APIError{StatusCode: 500, Message: "boom"}, http.StatusBadGateway},
		{&ingest.APIError{StatusCode: 404, Message: "gone"}, http.StatusNotFound},
		{fmt.Errorf("fetch: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{store.ErrPoolNotInitialized, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: ticker is required", store.ErrInvalidPosition), http.StatusBadRequest},
		{fmt.Errorf("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestWriteDomainError_Assumptions(t *testing.T) {
	a := valuation.DefaultAssumptions()
	a.ProjectionYears = 1
	err := a.Validate()
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteDomainError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "projection_years", body.Fields[0].Field)
}

func TestDecodeJSON_KeepsPrefilledFields(t *testing.T) {
	type req struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	v := req{A: 1, B: 2}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"b": 5}`))
	assert.True(t, DecodeJSON(httptest.NewRecorder(), r, &v))
	assert.Equal(t, req{A: 1, B: 5}, v)

	rec := httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"c": 1}`))
	assert.False(t, DecodeJSON(rec, r, &v))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSAndMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.True(t, CORS(rec, httptest.NewRequest(http.MethodOptions, "/", nil), http.MethodPost))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	rec = httptest.NewRecorder()
	assert.False(t, RequireMethod(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.MethodPost))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
