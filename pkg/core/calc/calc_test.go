package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresentValueOfCashFlows(t *testing.T) {
	// 110 / 1.1 + 121 / 1.21 = 100 + 100
	pv := PresentValueOfCashFlows([]float64{110, 121}, 0.10)
	assert.InDelta(t, 200.0, pv, 1e-9)

	assert.Equal(t, 0.0, PresentValue(100, 0.1, -1))
	assert.InDelta(t, 100.0, PresentValue(121, 0.1, 2), 1e-9)
}

func TestProjectSeries(t *testing.T) {
	series := ProjectSeries(100, 0.10, 3)
	assert.Len(t, series, 3)
	assert.InDelta(t, 110.0, series[0], 1e-9)
	assert.InDelta(t, 121.0, series[1], 1e-9)
	assert.InDelta(t, 133.1, series[2], 1e-9)

	assert.Nil(t, ProjectSeries(100, 0.1, 0))
}

func TestTerminalValueGordonGrowth(t *testing.T) {
	assert.InDelta(t, 2000.0, TerminalValueGordonGrowth(100, 0.08, 0.03), 1e-9)
	// growth at or above the discount rate diverges
	assert.Equal(t, 0.0, TerminalValueGordonGrowth(100, 0.05, 0.05))
	assert.Equal(t, 0.0, TerminalValueGordonGrowth(100, 0.05, 0.06))
}

func TestUpsidePct_ExactThreshold(t *testing.T) {
	assert.Equal(t, 30.0, UpsidePct(130, 100))
	assert.Equal(t, -15.0, UpsidePct(85, 100))
	assert.Equal(t, 0.0, UpsidePct(10, 0))
}

func TestStats(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	assert.Equal(t, 2.5, Mean(values))
	assert.Equal(t, 2.5, Median(values))
	assert.Equal(t, []float64{4, 1, 3, 2}, values, "median must not reorder its input")
	assert.InDelta(t, math.Sqrt(1.25), PopulationStdDev(values), 1e-12)

	assert.Equal(t, 3.0, Median([]float64{5, 3, 1}))
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 0.0, PopulationStdDev([]float64{7}))
}

func TestFilterOpenAndClamp(t *testing.T) {
	assert.Equal(t, []float64{12, 99.9}, FilterOpen([]float64{0, 12, 100, 99.9, -3}, 0, 100))
	assert.Equal(t, 1.0, Clamp(3, -0.1, 1))
	assert.Equal(t, -0.1, Clamp(-0.5, -0.1, 1))
	assert.Equal(t, 0.4, Clamp(0.4, -0.1, 1))
}

func TestIsPositiveFinite(t *testing.T) {
	assert.True(t, IsPositiveFinite(0.01))
	assert.False(t, IsPositiveFinite(0))
	assert.False(t, IsPositiveFinite(-1))
	assert.False(t, IsPositiveFinite(math.Inf(1)))
	assert.False(t, IsPositiveFinite(math.NaN()))
}
