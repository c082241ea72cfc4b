package bondyield

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seriesPage = `<html><body>
<div class="series-meta">
  <span class="series-meta-value">2024-05:</span>
  <span class="series-meta-observation-value">5.25</span>
</div></body></html>`

func TestParseObservation(t *testing.T) {
	v, err := ParseObservation(strings.NewReader(seriesPage))
	require.NoError(t, err)
	assert.Equal(t, 5.25, v)

	_, err = ParseObservation(strings.NewReader(`<span class="series-meta-observation-value">.</span>`))
	assert.True(t, errors.Is(err, ErrNoObservation))

	for _, text := range []string{"NaN", "Inf", "-Inf", "+Infinity"} {
		_, err = ParseObservation(strings.NewReader(`<span class="series-meta-observation-value">` + text + `</span>`))
		assert.ErrorIs(t, err, ErrNoObservation, text)
	}

	v, err = ParseObservation(strings.NewReader(`<span class="series-meta-observation-value">NaN</span>` +
		`<span class="series-meta-observation-value">4.80</span>`))
	require.NoError(t, err)
	assert.Equal(t, 4.80, v)
}

func TestFREDSource_CurrentYield(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(seriesPage))
	}))
	defer srv.Close()

	v, err := NewFREDSource(srv.URL, time.Second).CurrentYield(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.25, v)
}

func TestFREDSource_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewFREDSource(srv.URL, time.Second).CurrentYield(context.Background())
	assert.Error(t, err)
}

type countingSource struct {
	values []float64
	err    error
	calls  int
}

func (s *countingSource) CurrentYield(ctx context.Context) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.values[s.calls-1], nil
}

func TestResolver_CachesAndFallsBack(t *testing.T) {
	src := &countingSource{values: []float64{5.1, 5.3}}
	r := NewResolver(src, 4.4, time.Hour, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	assert.Equal(t, 5.1, r.Yield(context.Background()))
	assert.Equal(t, 5.1, r.Yield(context.Background()))
	assert.Equal(t, 1, src.calls)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 5.3, r.Yield(context.Background()))

	src.err = errors.New("down")
	now = now.Add(2 * time.Hour)
	assert.Equal(t, 5.3, r.Yield(context.Background()), "stale live value beats the constant")

	failing := NewResolver(&countingSource{err: errors.New("down")}, 4.4, time.Hour, nil)
	assert.Equal(t, 4.4, failing.Yield(context.Background()))

	assert.Equal(t, 4.4, NewResolver(nil, 4.4, time.Hour, nil).Yield(context.Background()))
}
