package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fmpServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		for prefix, body := range routes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(body))
				return
			}
		}
		http.Error(w, `{"Error Message":"unknown endpoint"}`, http.StatusNotFound)
	}))
}

var statementRoutes = map[string]string{
	"/income-statement/": `[
		{"date":"2022-12-31","reportedCurrency":"USD","revenue":900,"eps":1.8,"weightedAverageShsOut":100,"weightedAverageShsOutDil":"105"},
		{"date":"2023-12-31","reportedCurrency":"USD","revenue":1000,"eps":0,"epsdiluted":2.0,"weightedAverageShsOut":100,"weightedAverageShsOutDil":null}
	]`,
	"/balance-sheet-statement/": `[
		{"date":"2023-12-31","totalEquity":500,"cashAndCashEquivalents":50,"totalDebt":"80"},
		{"date":"2022-12-31","totalStockholdersEquity":450,"cashAndCashEquivalents":40,"totalDebt":90}
	]`,
	"/cash-flow-statement/": `[
		{"date":"2023-12-31","freeCashFlow":120,"debtRepayment":-10,"netBorrowings":5},
		{"date":"2022-12-31","freeCashFlow":"N/A"}
	]`,
	"/ratios/": `[
		{"date":"2023-12-31","priceEarningsRatio":15.5,"priceToBookRatio":3.1,"payoutRatio":0.25},
		{"date":"2022-12-31","priceEarningsRatio":"12","priceToBookRatio":2.8,"payoutRatio":0.2}
	]`,
	"/historical-price-full/stock_dividend/": `{"symbol":"ACME","historical":[
		{"date":"2023-03-15","dividend":0.12},
		{"date":"2023-06-15","dividend":0.13},
		{"date":"2023-09-15","dividend":0,"adjDividend":0.14},
		{"date":"2023-12-15","dividend":0}
	]}`,
	"/quote/": `[{"symbol":"ACME","name":"Acme Corp","price":"31.40"}]`,
}

func TestFetchHistory_MergesAndAliases(t *testing.T) {
	srv := fmpServer(t, statementRoutes)
	defer srv.Close()

	c := NewFMPClient("test-key", WithBaseURL(srv.URL), WithRateLimit(100))
	h, err := c.FetchHistory(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, "ACME", h.Ticker)
	assert.Equal(t, "USD", h.Currency)
	require.Len(t, h.Snapshots, 2)

	latest := h.Snapshots[0]
	assert.Equal(t, 2023, latest.Date.Year(), "newest first")
	assert.Equal(t, 2.0, latest.EPS, "epsdiluted stands in for a missing eps")
	assert.Equal(t, 500.0, latest.TotalStockholdersEquity, "totalEquity alias")
	assert.Equal(t, 100.0, latest.Shares(), "basic shares when diluted is missing")
	assert.Equal(t, 80.0, latest.TotalDebt)
	assert.Equal(t, 120.0, latest.FreeCashFlow)
	assert.Equal(t, 115.0, latest.FCFE())
	assert.Equal(t, 0.5, latest.DividendPerShare, "eps x payout ratio")
	assert.Equal(t, 15.5, latest.PriceEarningsRatio)

	prior := h.Snapshots[1]
	assert.Equal(t, 105.0, prior.Shares())
	assert.Equal(t, 0.0, prior.FreeCashFlow)
	assert.Equal(t, 12.0, prior.PriceEarningsRatio)

	require.Len(t, h.Dividends, 3, "zero payments are dropped")
	assert.Equal(t, 0.14, h.Dividends[0].Dividend)
	assert.Equal(t, []float64{0.14, 0.13, 0.12}, h.DividendAmounts())
}

func TestFetchHistory_DividendFailureIsNotFatal(t *testing.T) {
	routes := map[string]string{}
	for k, v := range statementRoutes {
		if k != "/historical-price-full/stock_dividend/" {
			routes[k] = v
		}
	}
	srv := fmpServer(t, routes)
	defer srv.Close()

	h, err := NewFMPClient("test-key", WithBaseURL(srv.URL)).FetchHistory(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Empty(t, h.Dividends)
	assert.Len(t, h.Snapshots, 2)
}

func TestFetchHistory_Errors(t *testing.T) {
	srv := fmpServer(t, map[string]string{"/income-statement/": `[]`})
	defer srv.Close()

	_, err := NewFMPClient("test-key", WithBaseURL(srv.URL)).FetchHistory(context.Background(), "NONE")
	assert.True(t, errors.Is(err, ErrNoData))

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Invalid API KEY", http.StatusUnauthorized)
	}))
	defer srv2.Close()

	_, err = NewFMPClient("bad", WithBaseURL(srv2.URL)).FetchHistory(context.Background(), "ACME")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "/income-statement/ACME", apiErr.Endpoint)
}

func TestFetchQuote(t *testing.T) {
	srv := fmpServer(t, statementRoutes)
	defer srv.Close()

	q, err := NewFMPClient("test-key", WithBaseURL(srv.URL)).FetchQuote(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, Quote{Symbol: "ACME", Name: "Acme Corp", Price: 31.40}, q)
}

func TestFetchQuote_CancelledContext(t *testing.T) {
	srv := fmpServer(t, statementRoutes)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFMPClient("test-key", WithBaseURL(srv.URL)).FetchQuote(ctx, "ACME")
	assert.Error(t, err)
}

func TestFlexFloat64(t *testing.T) {
	var rec struct {
		A flexFloat64 `json:"a"`
		B flexFloat64 `json:"b"`
		C flexFloat64 `json:"c"`
		D flexFloat64 `json:"d"`
		E flexFloat64 `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1.5,"b":"2.25","c":"N/A","d":null,"e":""}`), &rec))
	assert.Equal(t, flexFloat64(1.5), rec.A)
	assert.Equal(t, flexFloat64(2.25), rec.B)
	assert.Zero(t, rec.C)
	assert.Zero(t, rec.D)
	assert.Zero(t, rec.E)

	assert.Error(t, json.Unmarshal([]byte(`{"a":{"x":1}}`), &rec))
}
