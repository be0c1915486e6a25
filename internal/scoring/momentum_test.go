package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aegis/rankengine/internal/contracts"
)

// linearSeries builds n ascending daily bars from start to end price,
// linearly interpolated, dated from 2025-01-01.
func linearSeries(n int, start, end float64) []Bar {
	bars := make([]Bar, n)
	step := (end - start) / float64(n-1)
	for i := 0; i < n; i++ {
		price := start + step*float64(i)
		bars[i] = Bar{
			Date:  fmt.Sprintf("2025-%02d-%02d", (i/28)%12+1, i%28+1),
			Open:  price,
			High:  price,
			Low:   price,
			Close: price,
		}
	}
	return bars
}

func flatSeries(n int, price float64) []Bar {
	return linearSeries(n, price, price)
}

// TestComputeMomentum_RisingSeries covers seed scenario S1: a 200-day
// noiseless linear rise should produce strongly positive sub-scores and a
// momentum_score in the upper range.
func TestComputeMomentum_RisingSeries(t *testing.T) {
	bars := linearSeries(200, 100, 200)
	result := ComputeMomentum(bars, contracts.DefaultMomentumWeights())

	assert.False(t, result.InsufficientData)
	assert.InDelta(t, 1.0, result.TrendStrength, 0.01)
	assert.InDelta(t, 1.0, result.ConsistencyScore, 0.01)
	assert.Greater(t, result.RawReturn6M, 0.0)
	assert.Greater(t, result.RawReturn3M, 0.0)
	assert.GreaterOrEqual(t, result.TotalScore, 0.85)
	assert.LessOrEqual(t, result.TotalScore, 1.0)
}

// TestComputeMomentum_FlatSeries covers seed scenario S2: a perfectly flat
// series produces zero raw sub-scores and a momentum_score at the
// normalized midpoint contributed by the affine-clipped components.
func TestComputeMomentum_FlatSeries(t *testing.T) {
	bars := flatSeries(260, 100)
	result := ComputeMomentum(bars, contracts.DefaultMomentumWeights())

	assert.False(t, result.InsufficientData)
	assert.Equal(t, 0.0, result.RawReturn6M)
	assert.Equal(t, 0.0, result.RawReturn3M)
	assert.Equal(t, 0.0, result.RawReturn1M)
	assert.Equal(t, 0.0, result.VolAdjMomentum)
	assert.Equal(t, 0.0, result.SmoothMomentum)
	assert.Equal(t, 0.0, result.ConsistencyScore)
	assert.Equal(t, 0.0, result.TrendStrength)
	// Every raw sub-score is zero, which the affine clip maps to the
	// midpoint (0.5) of each bounded component; consistency and trend are
	// already-normalized raw zeros, so the weighted total lands below the
	// naive 0.5 rather than exactly at it.
	assert.InDelta(t, 0.45, result.TotalScore, 0.01)
}

func TestComputeMomentum_InsufficientData(t *testing.T) {
	bars := flatSeries(30, 100)
	result := ComputeMomentum(bars, contracts.DefaultMomentumWeights())
	assert.True(t, result.InsufficientData)
}

// TestComputeMomentum_ShortHistoryHasNoFIPQuality covers the 120-179 bar
// range: enough history to clear minMomentumHistory and produce a full
// score, but short of fipQuality's own 180-bar gate, so FIP quality must be
// flagged absent rather than silently reported as zero (spec.md §8).
func TestComputeMomentum_ShortHistoryHasNoFIPQuality(t *testing.T) {
	bars := linearSeries(150, 100, 130)
	result := ComputeMomentum(bars, contracts.DefaultMomentumWeights())

	assert.False(t, result.InsufficientData)
	assert.False(t, result.HasFIPQuality)
}

func TestComputeMomentum_Deterministic(t *testing.T) {
	bars := linearSeries(200, 100, 150)
	weights := contracts.DefaultMomentumWeights()

	r1 := ComputeMomentum(bars, weights)
	r2 := ComputeMomentum(bars, weights)

	assert.Equal(t, r1, r2)
}

func TestMomentumWeights_Normalized(t *testing.T) {
	w := contracts.MomentumWeights{
		RawMomentum6M: 0.6, RawMomentum3M: 0.4, SmoothMomentum: 0.5,
		VolAdjMomentum: 0.3, ConsistencyScore: 0.1, TrendStrength: 0.1,
	}
	normalized := w.Normalized()
	assert.InDelta(t, 1.0, normalized.Sum(), 1e-9)
}

func TestMomentumWeights_AlreadyNormalizedIsNoOp(t *testing.T) {
	w := contracts.DefaultMomentumWeights()
	assert.Equal(t, w, w.Normalized())
}
