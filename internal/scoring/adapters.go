package scoring

import (
	"github.com/aegis/rankengine/internal/contracts"
)

// BarsFromPriceBars adapts contracts.PriceBar (ascending by date, as read
// from the Store Gateway) into the scoring package's minimal Bar shape.
func BarsFromPriceBars(bars []contracts.PriceBar) []Bar {
	out := make([]Bar, len(bars))
	for i, b := range bars {
		out[i] = Bar{
			Date:  b.Date.Format("2006-01-02"),
			Open:  b.Open,
			High:  b.High,
			Low:   b.Low,
			Close: b.Close,
		}
	}
	return out
}

// SanitizeRow replaces any NaN/Inf numeric field on row with 0.0 before it
// crosses a component boundary (store write, pipeline stage report); callers
// otherwise cannot distinguish a NaN from a legitimately-zero score.
func SanitizeRow(row contracts.ScoreRow) contracts.ScoreRow {
	row.Score = sanitize(row.Score)
	row.MomentumScore = sanitize(row.MomentumScore)
	if row.FIPQuality != nil {
		fip := sanitize(*row.FIPQuality)
		row.FIPQuality = &fip
	}
	row.RawMomentum122 = sanitize(row.RawMomentum122)
	row.TrueMomentum6M = sanitize(row.TrueMomentum6M)
	row.TrueMomentum3M = sanitize(row.TrueMomentum3M)
	row.TrueMomentum1M = sanitize(row.TrueMomentum1M)
	row.RawReturn6M = sanitize(row.RawReturn6M)
	row.RawReturn3M = sanitize(row.RawReturn3M)
	row.RawReturn1M = sanitize(row.RawReturn1M)
	if row.Aux != nil {
		clean := make(map[string]float64, len(row.Aux))
		for k, v := range row.Aux {
			clean[k] = sanitize(v)
		}
		row.Aux = clean
	}
	return row
}
