package contracts

import "time"

// StockMetadata is one row per symbol: identity, classification and the
// fundamentals maintained by the Attribute Poller.
type StockMetadata struct {
	Symbol        string
	CompanyName   string
	Sector        *string
	Industry      *string
	Exchange      string
	MarketCap     *int64
	MarketCapRank *int
	CurrentPrice  *float64
	LastPriceDate *time.Time

	PE                *float64
	PB                *float64
	Beta              *float64
	ROE               *float64
	ROA               *float64
	GrossMargin       *float64
	OperatingMargin   *float64
	ProfitMargin      *float64
	DividendYield     *float64
	DebtToEquity      *float64
	CurrentRatio      *float64
	High52Week        *float64
	Low52Week         *float64
	Volume            *int64
	SharesOutstanding *int64
}

// MetadataPatch carries a partial update to StockMetadata; nil fields leave
// the stored value untouched.
type MetadataPatch struct {
	Sector            *string
	Industry          *string
	CurrentPrice      *float64
	MarketCap         *int64
	PE                *float64
	PB                *float64
	Beta              *float64
	ROE               *float64
	ROA               *float64
	GrossMargin       *float64
	OperatingMargin   *float64
	ProfitMargin      *float64
	DividendYield     *float64
	DebtToEquity      *float64
	CurrentRatio      *float64
	High52Week        *float64
	Low52Week         *float64
	Volume            *int64
	SharesOutstanding *int64
}

// IsComplete reports whether the metadata satisfies the Attribute Poller's
// completeness predicate: sector and industry present, plus at least one
// fundamental metric.
func (m StockMetadata) IsComplete() bool {
	if m.Sector == nil || m.Industry == nil {
		return false
	}
	metrics := []*float64{
		m.PE, m.PB, m.Beta, m.ROE, m.ROA,
		m.GrossMargin, m.OperatingMargin, m.ProfitMargin,
		m.DividendYield, m.DebtToEquity, m.CurrentRatio,
		m.High52Week, m.Low52Week,
	}
	for _, metric := range metrics {
		if metric != nil {
			return true
		}
	}
	return m.Volume != nil || m.SharesOutstanding != nil
}

// MissingFields lists the StockMetadata attributes that are currently null,
// restricted to the fields the Attribute Poller tracks.
func (m StockMetadata) MissingFields() []string {
	var missing []string
	if m.Sector == nil {
		missing = append(missing, "sector")
	}
	if m.Industry == nil {
		missing = append(missing, "industry")
	}
	if m.CurrentPrice == nil {
		missing = append(missing, "current_price")
	}
	if m.MarketCap == nil {
		missing = append(missing, "market_cap")
	}
	return missing
}

// PriceBar is one row per (symbol, date).
type PriceBar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Valid checks the OHLC ordering invariant required of every upserted bar.
func (b PriceBar) Valid() bool {
	lo := min2(b.Open, b.Close)
	hi := max2(b.Open, b.Close)
	return b.Low <= lo && lo <= hi && hi <= b.High && b.Volume >= 0
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// MetadataFilter narrows GetStockMetadata/GetTopStocksByMarketCap results to
// simple conjunctions over indexed columns.
type MetadataFilter struct {
	Industry *string
	Sector   *string
}
