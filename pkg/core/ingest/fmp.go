// Package ingest fetches company fundamentals from Financial Modeling Prep and
// maps the loosely typed records into models.FinancialHistory.
// API Documentation: https://site.financialmodelingprep.com/developer/docs
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"intrinsic_valuation/pkg/models"
)

const (
	DefaultBaseURL      = "https://financialmodelingprep.com/api/v3"
	DefaultTimeout      = 30 * time.Second
	DefaultRateLimit    = 5 // requests per second
	DefaultHistoryLimit = 10
)

// Source is what the valuation flow needs from a data provider.
type Source interface {
	FetchHistory(ctx context.Context, ticker string) (models.FinancialHistory, error)
	FetchQuote(ctx context.Context, ticker string) (Quote, error)
}

// Quote is the current market quote of a ticker.
type Quote struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

// =============================================================================
// FMP CLIENT
// =============================================================================

// FMPClient is a rate-limited Financial Modeling Prep client.
type FMPClient struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	logger       arbor.ILogger
	limiter      *rate.Limiter
	historyLimit int
}

var _ Source = (*FMPClient)(nil)

// ClientOption configures the client
type ClientOption func(*FMPClient)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *FMPClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *FMPClient) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *FMPClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *FMPClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithHistoryLimit sets how many annual periods are requested per statement.
func WithHistoryLimit(periods int) ClientOption {
	return func(c *FMPClient) {
		if periods > 0 {
			c.historyLimit = periods
		}
	}
}

// NewFMPClient creates a new FMP client
func NewFMPClient(apiKey string, opts ...ClientOption) *FMPClient {
	c := &FMPClient{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:       arbor.NewNoOpLogger(),
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError represents a non-200 FMP response
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("FMP API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *FMPClient) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("FMP API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *FMPClient) statement(ctx context.Context, endpoint, ticker string, result interface{}) error {
	params := url.Values{}
	params.Set("period", "annual")
	params.Set("limit", strconv.Itoa(c.historyLimit))
	return c.get(ctx, fmt.Sprintf("/%s/%s", endpoint, url.PathEscape(ticker)), params, result)
}

// FetchQuote retrieves the latest quote.
func (c *FMPClient) FetchQuote(ctx context.Context, ticker string) (Quote, error) {
	var quotes []quoteRecord
	if err := c.get(ctx, "/quote/"+url.PathEscape(ticker), nil, &quotes); err != nil {
		return Quote{}, fmt.Errorf("fetch quote %s: %w", ticker, err)
	}
	if len(quotes) == 0 {
		return Quote{}, fmt.Errorf("fetch quote %s: %w", ticker, ErrNoData)
	}
	q := quotes[0]
	return Quote{Symbol: q.Symbol, Name: q.Name, Price: float64(q.Price)}, nil
}

// FetchHistory retrieves income, balance, cash-flow, ratios and dividends and
// merges them into one newest-first history keyed by period date.
func (c *FMPClient) FetchHistory(ctx context.Context, ticker string) (models.FinancialHistory, error) {
	var (
		income   []incomeRecord
		balance  []balanceRecord
		cashFlow []cashFlowRecord
		ratios   []ratiosRecord
	)
	if err := c.statement(ctx, "income-statement", ticker, &income); err != nil {
		return models.FinancialHistory{}, fmt.Errorf("fetch income statement %s: %w", ticker, err)
	}
	if len(income) == 0 {
		return models.FinancialHistory{}, fmt.Errorf("fetch income statement %s: %w", ticker, ErrNoData)
	}
	if err := c.statement(ctx, "balance-sheet-statement", ticker, &balance); err != nil {
		return models.FinancialHistory{}, fmt.Errorf("fetch balance sheet %s: %w", ticker, err)
	}
	if err := c.statement(ctx, "cash-flow-statement", ticker, &cashFlow); err != nil {
		return models.FinancialHistory{}, fmt.Errorf("fetch cash flow %s: %w", ticker, err)
	}
	if err := c.statement(ctx, "ratios", ticker, &ratios); err != nil {
		return models.FinancialHistory{}, fmt.Errorf("fetch ratios %s: %w", ticker, err)
	}

	// Dividends are optional: most growth stocks have none.
	var dividends dividendResponse
	if err := c.get(ctx, "/historical-price-full/stock_dividend/"+url.PathEscape(ticker), nil, &dividends); err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("Dividend history unavailable")
	}

	history := mergeStatements(ticker, income, balance, cashFlow, ratios, dividends.Historical)
	c.logger.Info().
		Str("ticker", ticker).
		Int("periods", len(history.Snapshots)).
		Int("dividends", len(history.Dividends)).
		Msg("Fetched financial history")
	return history, nil
}
