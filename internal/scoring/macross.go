package scoring

// MACrossResult is the moving-average crossover score.
type MACrossResult struct {
	InsufficientData bool
	Score            float64
	SMA50            float64
	SMA200           float64
}

// ComputeMACross implements the moving-average crossover strategy: the
// relative gap between the 50-day and 200-day SMA. Requires at least 200
// bars; zero when sma200 is zero.
func ComputeMACross(bars []Bar) MACrossResult {
	const window = 200
	if len(bars) < window {
		return MACrossResult{InsufficientData: true}
	}

	closes := closesOf(bars)
	sma50 := sma(closes, 50)
	sma200 := sma(closes, 200)

	var score float64
	if sma200 != 0 {
		score = (sma50 - sma200) / sma200
	}

	return MACrossResult{
		Score:  sanitize(score),
		SMA50:  sma50,
		SMA200: sma200,
	}
}

func closesOf(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
