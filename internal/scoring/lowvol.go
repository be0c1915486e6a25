package scoring

// LowVolResult is the low-volatility score: negative daily volatility, so
// lower-risk stocks rank higher.
type LowVolResult struct {
	InsufficientData bool
	Score            float64
	DailyVolatility  float64
}

// ComputeLowVol implements the low-volatility strategy. Requires at least
// 252 bars and 20 return samples.
func ComputeLowVol(bars []Bar) LowVolResult {
	const window = 252
	if len(bars) < window {
		return LowVolResult{InsufficientData: true}
	}

	closes := closesOf(bars)
	returns := dailyReturns(closes)
	recent := lastN(returns, window)
	if len(recent) < 20 {
		return LowVolResult{InsufficientData: true}
	}

	dailyVol := stdev(recent)

	return LowVolResult{
		Score:           sanitize(-dailyVol),
		DailyVolatility: sanitize(dailyVol),
	}
}
