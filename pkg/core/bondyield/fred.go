// Package bondyield supplies the AAA corporate bond yield used by the Graham formula.
// The live value is scraped from the FRED series page; callers fall back to the
// configured constant when the page is unavailable.
package bondyield

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

const DefaultFREDURL = "https://fred.stlouisfed.org/series/AAA"

// ErrNoObservation is returned when the page has no parsable yield.
var ErrNoObservation = errors.New("no bond yield observation found")

// Source returns the latest AAA yield in percent.
type Source interface {
	CurrentYield(ctx context.Context) (float64, error)
}

// FREDSource scrapes the Moody's Seasoned AAA series page.
type FREDSource struct {
	url        string
	httpClient *http.Client
}

var _ Source = (*FREDSource)(nil)

// NewFREDSource creates a scraper for url (DefaultFREDURL when empty).
func NewFREDSource(url string, timeout time.Duration) *FREDSource {
	if url == "" {
		url = DefaultFREDURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FREDSource{url: url, httpClient: &http.Client{Timeout: timeout}}
}

// CurrentYield fetches and parses the latest observation.
func (s *FREDSource) CurrentYield(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "intrinsic-valuation/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fred returned status %d", resp.StatusCode)
	}
	return ParseObservation(resp.Body)
}

// ParseObservation extracts the latest observation value from a FRED series page.
func ParseObservation(r io.Reader) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to parse html: %w", err)
	}

	var value float64
	found := false
	doc.Find(".series-meta-observation-value").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || !(v > 0) || math.IsInf(v, 0) {
			return true
		}
		value, found = v, true
		return false
	})
	if !found {
		return 0, ErrNoObservation
	}
	return value, nil
}

// Resolver caches the live yield and falls back to a fixed value on failure.
type Resolver struct {
	source   Source
	fallback float64
	ttl      time.Duration
	logger   arbor.ILogger
	now      func() time.Time

	mu        sync.Mutex
	cached    float64
	fetchedAt time.Time
}

// NewResolver wraps source. A nil source always yields fallback.
func NewResolver(source Source, fallback float64, ttl time.Duration, logger arbor.ILogger) *Resolver {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Resolver{source: source, fallback: fallback, ttl: ttl, logger: logger, now: time.Now}
}

// Yield returns the cached live yield, refreshing it once the ttl has passed.
func (r *Resolver) Yield(ctx context.Context) float64 {
	if r == nil || r.source == nil {
		if r == nil {
			return 0
		}
		return r.fallback
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached > 0 && r.now().Sub(r.fetchedAt) < r.ttl {
		return r.cached
	}

	v, err := r.source.CurrentYield(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Live bond yield unavailable, using configured value")
		if r.cached > 0 {
			return r.cached
		}
		return r.fallback
	}
	r.cached, r.fetchedAt = v, r.now()
	r.logger.Debug().Float64("yield", v).Msg("Bond yield refreshed")
	return v
}
