package scoring

import (
	"github.com/aegis/rankengine/internal/contracts"
)

// Momentum lookback constants, adjusted for ~249 trading days of available
// history (Alpha Architect's methodology uses calendar months; these are
// the trading-day equivalents).
const (
	lookback122  = 180
	lookback6M   = 100
	lookback3M   = 50
	lookback1M   = 15
	skipRecent   = 15
	minMomentumHistory = 120
)

// MomentumResult carries every raw, intermediate and normalized value the
// Quality Momentum Score produces, for persistence and transparency.
type MomentumResult struct {
	InsufficientData bool

	TotalScore float64

	RawMomentum122 float64
	FIPQuality     float64 // 0 with HasFIPQuality false when <8 monthly returns

	RawReturn6M, RawReturn3M, RawReturn1M    float64
	TrueMomentum6M, TrueMomentum3M, TrueMomentum1M float64

	VolAdjMomentum   float64
	SmoothMomentum   float64
	ConsistencyScore float64
	TrendStrength    float64

	HasFIPQuality bool
}

// rawMomentum computes (P[n-1]-P[n-1-period]) / P[n-1-period]; returns
// (0, false) when there isn't enough history.
func rawMomentum(closes []float64, period int) (float64, bool) {
	n := len(closes)
	if n < period+1 {
		return 0, false
	}
	current := closes[n-1]
	past := closes[n-1-period]
	if past == 0 {
		return 0, false
	}
	return (current - past) / past, true
}

// momentum122 computes the 12-2 momentum: return over lookback122 trading
// days ending skipRecent days before today.
func momentum122(closes []float64) (float64, bool) {
	n := len(closes)
	offset := lookback122 + skipRecent
	if n < offset+1 {
		return 0, false
	}
	current := closes[n-1]
	past := closes[n-1-offset]
	if past == 0 {
		return 0, false
	}
	return (current - past) / past, true
}

// volAdjMomentum divides the mean of the last `window` daily returns by
// their standard deviation; zero if stdev is zero or there's not enough
// history.
func volAdjMomentum(returns []float64, window int) float64 {
	if len(returns) < window {
		return 0
	}
	recent := lastN(returns, window)
	sd := stdev(recent)
	if sd == 0 {
		return 0
	}
	return mean(recent) / sd
}

// smoothMomentum multiplies raw momentum over `period` by the fraction of
// positive-return days within that window — the "Frog in the Pan"
// consistency multiplier.
func smoothMomentum(closes []float64, period int) (float64, bool) {
	raw, ok := rawMomentum(closes, period)
	if !ok {
		return 0, false
	}
	returns := dailyReturns(closes)
	if len(returns) < period {
		return 0, false
	}
	window := lastN(returns, period)
	positive := 0
	for _, r := range window {
		if r > 0 {
			positive++
		}
	}
	ratio := float64(positive) / float64(len(window))
	return raw * ratio, true
}

// fipQuality resamples to month-end closes, takes the last 10 monthly
// returns (requires >= 8), and returns (pct_positive - pct_negative) *
// sign(cumulative_return).
func fipQuality(dates []string, closes []float64) (float64, bool) {
	if len(closes) < lookback122 {
		return 0, false
	}
	monthly := monthEndCloses(dates, closes)
	monthlyReturns := dailyReturns(monthly)
	monthlyReturns = lastN(monthlyReturns, 10)
	if len(monthlyReturns) < 8 {
		return 0, false
	}

	positive, negative := 0, 0
	cumulative := 1.0
	for _, r := range monthlyReturns {
		if r > 0 {
			positive++
		} else if r < 0 {
			negative++
		}
		cumulative *= 1 + r
	}
	total := float64(len(monthlyReturns))
	pctPositive := float64(positive) / total
	pctNegative := float64(negative) / total
	cumulativeReturn := cumulative - 1

	sign := 0.0
	switch {
	case cumulativeReturn > 0:
		sign = 1
	case cumulativeReturn < 0:
		sign = -1
	}
	return (pctPositive - pctNegative) * sign, true
}

// consistencyScore is the fraction of positive-return days over the last 60
// daily returns.
func consistencyScore(returns []float64) float64 {
	if len(returns) < 60 {
		return 0
	}
	recent := lastN(returns, 60)
	positive := 0
	for _, r := range recent {
		if r > 0 {
			positive++
		}
	}
	return float64(positive) / float64(len(recent))
}

// trendStrength compares the current close against SMA20 and SMA50.
func trendStrength(closes []float64) float64 {
	if len(closes) < 50 {
		return 0
	}
	current := closes[len(closes)-1]
	sma20 := sma(closes, 20)
	sma50 := sma(closes, 50)

	switch {
	case current > sma20 && sma20 > sma50:
		return 1.0
	case current > sma20 || current > sma50:
		return 0.5
	default:
		return 0.0
	}
}

// ComputeMomentum implements the Quality Momentum Score (spec §4.7). bars
// must be sorted ascending by date. Returns InsufficientData=true when the
// series is too short for a meaningful score.
func ComputeMomentum(bars []Bar, weights contracts.MomentumWeights) MomentumResult {
	if len(bars) < minMomentumHistory {
		return MomentumResult{InsufficientData: true}
	}

	closes := make([]float64, len(bars))
	dates := make([]string, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		dates[i] = b.Date
	}

	returns := dailyReturns(closes)

	raw122, _ := momentum122(closes)
	raw6m, _ := rawMomentum(closes, lookback6M)
	raw3m, _ := rawMomentum(closes, lookback3M)
	raw1m, _ := rawMomentum(closes, lookback1M)

	true6m, _ := smoothMomentum(closes, lookback6M)
	true3m, _ := smoothMomentum(closes, lookback3M)
	true1m, _ := smoothMomentum(closes, lookback1M)

	volAdj := volAdjMomentum(returns, 60)
	smooth, _ := smoothMomentum(closes, minMomentumHistory)
	consistency := consistencyScore(returns)
	trend := trendStrength(closes)

	fip, hasFIP := fipQuality(dates, closes)

	norm6m := clipAffine(raw6m, -0.5, 0.5)
	norm3m := clipAffine(raw3m, -0.3, 0.3)
	normSmooth := clipAffine(smooth, -0.3, 0.3)
	normVolAdj := clipAffine(volAdj, -1, 1)

	w := weights.Normalized()
	total := w.RawMomentum6M*norm6m +
		w.RawMomentum3M*norm3m +
		w.SmoothMomentum*normSmooth +
		w.VolAdjMomentum*normVolAdj +
		w.ConsistencyScore*consistency +
		w.TrendStrength*trend

	return MomentumResult{
		TotalScore:       sanitize(total),
		RawMomentum122:   sanitize(raw122),
		FIPQuality:       sanitize(fip),
		HasFIPQuality:    hasFIP,
		RawReturn6M:      sanitize(raw6m),
		RawReturn3M:      sanitize(raw3m),
		RawReturn1M:      sanitize(raw1m),
		TrueMomentum6M:   sanitize(true6m),
		TrueMomentum3M:   sanitize(true3m),
		TrueMomentum1M:   sanitize(true1m),
		VolAdjMomentum:   sanitize(volAdj),
		SmoothMomentum:   sanitize(smooth),
		ConsistencyScore: sanitize(consistency),
		TrendStrength:    sanitize(trend),
	}
}

