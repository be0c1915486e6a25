// Package fetcher is the upstream market-data client (C2): rate-limited,
// retryable batch + single-symbol price and fundamentals retrieval. Ported
// from the teacher's internal/external/naver client, generalized from
// Korean-market endpoints to the Indian-equity provider contract in spec §6.
package fetcher

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/aegis/rankengine/internal/contracts"
	"github.com/aegis/rankengine/pkg/config"
	"github.com/aegis/rankengine/pkg/httputil"
	"github.com/aegis/rankengine/pkg/logger"
)

// Client handles communication with the upstream market-data provider.
// ⭐ SSOT: upstream provider HTTP calls go through this client only.
type Client struct {
	single      *httputil.Client
	batch       *httputil.Client
	fundamental *httputil.Client
	logger      *logger.Logger
	baseURL     string
}

// New builds a Fetcher client, wiring one local rate.Limiter per fetch kind
// onto a shared httputil.Client configuration — singles and batches share a
// 1 req/s cadence, fundamentals get the slower 1 req/3s cadence required by
// spec §4.2.
func New(cfg *config.Config, log *logger.Logger) *Client {
	newHTTP := func(interval time.Duration) *httputil.Client {
		return httputil.NewWithTimeout(cfg, log, cfg.Fetcher.RequestTimeout).
			WithRetry(cfg.Fetcher.MaxRetries, cfg.Fetcher.RetryDelay).
			WithLocalRateLimiter(rate.NewLimiter(rate.Every(interval), 1))
	}

	return &Client{
		single:      newHTTP(cfg.Fetcher.SingleInterval),
		batch:       newHTTP(cfg.Fetcher.BatchInterval),
		fundamental: newHTTP(cfg.Fetcher.FundamentalInterval),
		logger:      log,
		baseURL:     cfg.Fetcher.BaseURL,
	}
}

// providerSymbol translates a local symbol to the upstream provider's
// namespace (NSE suffix), kept internal to the fetcher per spec §4.2.
func providerSymbol(symbol string) string {
	return symbol + ".NS"
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("%s%s", c.baseURL, path)
}

// classifyStatus maps an HTTP status/response into the fetcher's error
// taxonomy (spec §4.2, §7): 429 → RateLimited, 5xx → Transient, 404 → Unknown.
func classifyStatus(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return contracts.ErrRateLimited
	case statusCode >= 500:
		return contracts.ErrTransient
	case statusCode == http.StatusNotFound:
		return contracts.ErrUnknown
	case statusCode >= 400:
		return contracts.ErrUnknown
	default:
		return nil
	}
}

// classifyError maps a transport-level error (DNS, timeout, connection
// refused) to Transient — the provider is assumed reachable but unhealthy.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", contracts.ErrTransient, err)
}
