package scoring

import (
	"fmt"

	"github.com/aegis/rankengine/internal/contracts"
)

// ComputeScore dispatches to the strategy-specific pure function and
// assembles a contracts.ScoreRow. bars must be sorted ascending by date and
// belong to a single symbol; the caller stamps Symbol/CalculationDate.
func ComputeScore(strategy contracts.Strategy, bars []Bar, weights contracts.MomentumWeights) (contracts.ScoreRow, error) {
	if !strategy.Valid() {
		return contracts.ScoreRow{}, fmt.Errorf("unknown strategy %q", strategy)
	}

	row := contracts.ScoreRow{Strategy: strategy}

	switch strategy {
	case contracts.StrategyMomentum:
		r := ComputeMomentum(bars, weights)
		row.InsufficientData = r.InsufficientData
		row.Score = r.TotalScore
		row.MomentumScore = r.TotalScore
		if r.HasFIPQuality {
			fip := r.FIPQuality
			row.FIPQuality = &fip
		}
		row.RawMomentum122 = r.RawMomentum122
		row.TrueMomentum6M = r.TrueMomentum6M
		row.TrueMomentum3M = r.TrueMomentum3M
		row.TrueMomentum1M = r.TrueMomentum1M
		row.RawReturn6M = r.RawReturn6M
		row.RawReturn3M = r.RawReturn3M
		row.RawReturn1M = r.RawReturn1M
		row.Aux = map[string]float64{
			"vol_adj_momentum":  r.VolAdjMomentum,
			"smooth_momentum":   r.SmoothMomentum,
			"consistency_score": r.ConsistencyScore,
			"trend_strength":    r.TrendStrength,
		}

	case contracts.StrategyWeek52:
		r := ComputeWeek52(bars)
		row.InsufficientData = r.InsufficientData
		row.Score = r.Breakout
		row.Aux = map[string]float64{
			"breakout_ratio": r.Breakout,
			"high_52":        r.High52,
			"low_52":         r.Low52,
		}

	case contracts.StrategyMACross:
		r := ComputeMACross(bars)
		row.InsufficientData = r.InsufficientData
		row.Score = r.Score
		row.Aux = map[string]float64{
			"ma_50":  r.SMA50,
			"ma_200": r.SMA200,
		}

	case contracts.StrategyLowVol:
		r := ComputeLowVol(bars)
		row.InsufficientData = r.InsufficientData
		row.Score = r.Score
		row.Aux = map[string]float64{
			"daily_volatility": r.DailyVolatility,
		}

	case contracts.StrategyMeanRev:
		r := ComputeMeanRev(bars)
		row.InsufficientData = r.InsufficientData
		row.Score = r.Score
		row.Aux = map[string]float64{
			"z_score": r.ZScore,
		}
	}

	return row, nil
}
