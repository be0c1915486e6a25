package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aegis/rankengine/internal/contracts"
)

// TestComputeWeek52_BreakoutEdge covers seed scenario S3: a single extreme
// high and low within the 252-day window, with current price at the high.
func TestComputeWeek52_BreakoutEdge(t *testing.T) {
	bars := make([]Bar, 252)
	for i := range bars {
		bars[i] = Bar{Open: 100, High: 100, Low: 100, Close: 100}
	}
	bars[179].High = 500
	bars[29].Low = 50
	bars[251].Close = 500

	result := ComputeWeek52(bars)

	assert.False(t, result.InsufficientData)
	assert.Equal(t, 1.0, result.Breakout)
}

func TestComputeWeek52_FlatRangeIsHalf(t *testing.T) {
	bars := flatSeries(252, 100)
	result := ComputeWeek52(bars)

	assert.False(t, result.InsufficientData)
	assert.Equal(t, 0.5, result.Breakout)
}

func TestComputeWeek52_InsufficientData(t *testing.T) {
	result := ComputeWeek52(flatSeries(100, 100))
	assert.True(t, result.InsufficientData)
}

func TestComputeMACross_InsufficientData(t *testing.T) {
	result := ComputeMACross(flatSeries(150, 100))
	assert.True(t, result.InsufficientData)
}

func TestComputeMACross_FlatSeriesIsZero(t *testing.T) {
	result := ComputeMACross(flatSeries(200, 100))
	assert.False(t, result.InsufficientData)
	assert.Equal(t, 0.0, result.Score)
}

func TestComputeLowVol_FlatSeriesIsZeroVol(t *testing.T) {
	result := ComputeLowVol(flatSeries(252, 100))
	assert.False(t, result.InsufficientData)
	assert.Equal(t, 0.0, result.DailyVolatility)
	assert.Equal(t, 0.0, result.Score)
}

func TestComputeLowVol_InsufficientData(t *testing.T) {
	result := ComputeLowVol(flatSeries(200, 100))
	assert.True(t, result.InsufficientData)
}

// TestComputeMeanRev_ZeroStdevIsInsufficient covers the boundary behavior:
// stdev == 0 over the mean-reversion window yields null, not +/-Inf.
func TestComputeMeanRev_ZeroStdevIsInsufficient(t *testing.T) {
	result := ComputeMeanRev(flatSeries(200, 100))
	assert.True(t, result.InsufficientData)
}

func TestComputeMeanRev_Deterministic(t *testing.T) {
	bars := linearSeries(200, 100, 150)
	r1 := ComputeMeanRev(bars)
	r2 := ComputeMeanRev(bars)
	assert.Equal(t, r1, r2)
}

func TestComputeScore_Dispatch(t *testing.T) {
	bars := linearSeries(260, 100, 200)
	weights := contracts.DefaultMomentumWeights()

	for _, strategy := range []contracts.Strategy{
		contracts.StrategyMomentum,
		contracts.StrategyWeek52,
		contracts.StrategyMACross,
		contracts.StrategyLowVol,
		contracts.StrategyMeanRev,
	} {
		row, err := ComputeScore(strategy, bars, weights)
		assert.NoError(t, err)
		assert.Equal(t, strategy, row.Strategy)
	}
}

func TestComputeScore_UnknownStrategy(t *testing.T) {
	_, err := ComputeScore(contracts.Strategy("bogus"), nil, contracts.DefaultMomentumWeights())
	assert.Error(t, err)
}

// TestComputeScore_MomentumFIPQualityNilOnShortHistory verifies the
// dispatcher carries ComputeMomentum's HasFIPQuality flag through to
// ScoreRow.FIPQuality rather than defaulting an absent FIP quality to 0.0.
func TestComputeScore_MomentumFIPQualityNilOnShortHistory(t *testing.T) {
	bars := linearSeries(150, 100, 130)
	row, err := ComputeScore(contracts.StrategyMomentum, bars, contracts.DefaultMomentumWeights())
	assert.NoError(t, err)
	assert.False(t, row.InsufficientData)
	assert.Nil(t, row.FIPQuality)
}

func TestComputeScore_MomentumFIPQualitySetOnFullHistory(t *testing.T) {
	bars := linearSeries(260, 100, 200)
	row, err := ComputeScore(contracts.StrategyMomentum, bars, contracts.DefaultMomentumWeights())
	assert.NoError(t, err)
	assert.False(t, row.InsufficientData)
	if assert.NotNil(t, row.FIPQuality) {
		assert.InDelta(t, 1.0, *row.FIPQuality, 1e-9)
	}
}

func TestComputeScore_EmptyHistoryIsInsufficientForEveryStrategy(t *testing.T) {
	weights := contracts.DefaultMomentumWeights()
	for _, strategy := range []contracts.Strategy{
		contracts.StrategyMomentum,
		contracts.StrategyWeek52,
		contracts.StrategyMACross,
		contracts.StrategyLowVol,
		contracts.StrategyMeanRev,
	} {
		row, err := ComputeScore(strategy, nil, weights)
		assert.NoError(t, err)
		assert.True(t, row.InsufficientData)
	}
}
