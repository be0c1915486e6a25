package fetcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aegis/rankengine/internal/contracts"
)

// fundamentalLabels maps the upstream key-stats page's row labels to the
// MetadataPatch field they populate — the same label-keyed table scrape
// teacher's naver client applies to Naver Finance's HTML pages, generalized
// from a fixed column layout to arbitrary row order.
var fundamentalLabels = map[string]string{
	"sector":             "sector",
	"industry":           "industry",
	"market cap":         "market_cap",
	"p/e":                "pe",
	"p/b":                "pb",
	"beta":               "beta",
	"roe":                "roe",
	"roa":                "roa",
	"gross margin":       "gross_margin",
	"operating margin":   "operating_margin",
	"profit margin":      "profit_margin",
	"dividend yield":     "dividend_yield",
	"debt to equity":     "debt_to_equity",
	"current ratio":      "current_ratio",
	"52 week high":       "high_52_week",
	"52 week low":        "low_52_week",
	"volume":             "volume",
	"shares outstanding": "shares_outstanding",
}

// FetchFundamentals scrapes the upstream provider's key-stats page for one
// symbol and returns a partial MetadataPatch — only fields the page exposed
// are set, per spec §4.2/§4.6.
// ⭐ SSOT: fundamentals HTML scraping happens only here.
func (c *Client) FetchFundamentals(ctx context.Context, symbol string) (contracts.MetadataPatch, error) {
	fullURL := fmt.Sprintf("%s?symbol=%s", c.url("/quote/key-stats"), providerSymbol(symbol))

	resp, err := c.fundamental.Get(ctx, fullURL)
	if err != nil {
		return contracts.MetadataPatch{}, fmt.Errorf("fetch fundamentals for %s: %w", symbol, classifyError(err))
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return contracts.MetadataPatch{}, fmt.Errorf("fetch fundamentals for %s: %w", symbol, err)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return contracts.MetadataPatch{}, fmt.Errorf("parse fundamentals page for %s: %w", symbol, contracts.ErrUnknown)
	}

	raw := make(map[string]string)
	doc.Find("table.key-stats tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		value := strings.TrimSpace(cells.Eq(1).Text())
		if field, ok := fundamentalLabels[label]; ok && value != "" {
			raw[field] = value
		}
	})

	if len(raw) == 0 {
		return contracts.MetadataPatch{}, contracts.ErrUnknown
	}

	patch := patchFromRaw(raw)
	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"fields": len(raw),
	}).Debug("Fetched fundamentals")
	return patch, nil
}

func patchFromRaw(raw map[string]string) contracts.MetadataPatch {
	var patch contracts.MetadataPatch

	str := func(key string) *string {
		if v, ok := raw[key]; ok {
			return &v
		}
		return nil
	}
	num := func(key string) *float64 {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		v = strings.ReplaceAll(v, ",", "")
		v = strings.TrimSuffix(v, "%")
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	intOf := func(key string) *int64 {
		f := num(key)
		if f == nil {
			return nil
		}
		n := int64(*f)
		return &n
	}

	patch.Sector = str("sector")
	patch.Industry = str("industry")
	patch.PE = num("pe")
	patch.PB = num("pb")
	patch.Beta = num("beta")
	patch.ROE = num("roe")
	patch.ROA = num("roa")
	patch.GrossMargin = num("gross_margin")
	patch.OperatingMargin = num("operating_margin")
	patch.ProfitMargin = num("profit_margin")
	patch.DividendYield = num("dividend_yield")
	patch.DebtToEquity = num("debt_to_equity")
	patch.CurrentRatio = num("current_ratio")
	patch.High52Week = num("high_52_week")
	patch.Low52Week = num("low_52_week")
	patch.MarketCap = intOf("market_cap")
	patch.Volume = intOf("volume")
	patch.SharesOutstanding = intOf("shares_outstanding")

	return patch
}
