package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aegis/rankengine/internal/contracts"
)

// barRow is the upstream provider's per-day OHLCV shape, modeled as a JSON
// chart endpoint the way teacher's naver.Client consumes Naver Finance's
// siseJson endpoint.
type barRow struct {
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume int64    `json:"volume"`
}

// FetchBars fetches daily OHLCV bars for one symbol within [from, to].
// ⭐ SSOT: single-symbol price fetches go through this function only.
func (c *Client) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	fullURL := fmt.Sprintf(
		"%s?symbol=%s&from=%s&to=%s",
		c.url("/chart/daily"),
		providerSymbol(symbol),
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
	)

	resp, err := c.single.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", symbol, classifyError(err))
	}
	defer resp.Body.Close()

	bars, err := c.parseBarsResponse(symbol, resp)
	if err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", symbol, err)
	}
	return bars, nil
}

// FetchBarsBatch fetches bars for many symbols concurrently, respecting the
// batch fetch kind's own rate limiter — used by the Price Poller's
// up-to-50-symbol batch wave (spec §4.5).
func (c *Client) FetchBarsBatch(ctx context.Context, symbols []string, from, to time.Time) map[string]contracts.FetchResult {
	results := make(map[string]contracts.FetchResult, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			bars, err := c.fetchBarsBatchOne(ctx, symbol, from, to)
			mu.Lock()
			results[symbol] = contracts.FetchResult{Bars: bars, Err: err}
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	return results
}

func (c *Client) fetchBarsBatchOne(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	fullURL := fmt.Sprintf(
		"%s?symbol=%s&from=%s&to=%s",
		c.url("/chart/daily"),
		providerSymbol(symbol),
		from.Format("2006-01-02"),
		to.Format("2006-01-02"),
	)

	resp, err := c.batch.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("fetch bars batch for %s: %w", symbol, classifyError(err))
	}
	defer resp.Body.Close()

	bars, err := c.parseBarsResponse(symbol, resp)
	if err != nil {
		return nil, fmt.Errorf("fetch bars batch for %s: %w", symbol, err)
	}
	return bars, nil
}

// parseBarsResponse classifies the HTTP status, decodes the JSON body, and
// applies the sort/dedup/null-OHLC-drop contract spec §4.2 requires of every
// fetcher response.
func (c *Client) parseBarsResponse(symbol string, resp *http.Response) ([]contracts.PriceBar, error) {
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", contracts.ErrTransient)
	}

	if isRateLimitedBody(body) {
		return nil, contracts.ErrRateLimited
	}

	var rows []barRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode bars response: %w", contracts.ErrUnknown)
	}
	if len(rows) == 0 {
		return nil, contracts.ErrUnknown
	}

	bars := make([]contracts.PriceBar, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.Open == nil || row.High == nil || row.Low == nil || row.Close == nil {
			continue
		}
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			continue
		}
		key := date.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true

		bars = append(bars, contracts.PriceBar{
			Symbol: symbol,
			Date:   date,
			Open:   *row.Open,
			High:   *row.High,
			Low:    *row.Low,
			Close:  *row.Close,
			Volume: row.Volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched bars")
	return bars, nil
}

// isRateLimitedBody checks the textual rate-limit signal spec §4.2 names
// alongside the HTTP 429 status.
func isRateLimitedBody(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "too many requests")
}
