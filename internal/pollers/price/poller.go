// Package price is the Price Poller (C5): a once-a-minute scheduled task
// that brings price history current across the universe after market close,
// scoring each symbol synchronously once its bars land. Ported from the
// teacher's internal/s0_data/collector worker-pool shape, generalized from a
// fixed concurrent pool to the explicit wave/retry-delay cycle spec.md §4.5
// describes.
package price

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aegis/rankengine/internal/contracts"
	"github.com/aegis/rankengine/internal/pending"
	"github.com/aegis/rankengine/internal/scores"
	"github.com/aegis/rankengine/internal/scoring"
	"github.com/aegis/rankengine/internal/tracker"
	"github.com/aegis/rankengine/pkg/logger"
)

const (
	batchSize        = 50
	maxWaves         = 5
	retryDelay       = 300 * time.Second
	perSymbolSpacing = 500 * time.Millisecond
	lookbackDays     = 400 // calendar days, comfortably covering the scoring window's ~260 trading days
)

// Runner implements scheduler.Job for the Price Poller.
type Runner struct {
	fetcher  contracts.Fetcher
	prices   contracts.PriceRepo
	tracker  *tracker.Tracker
	ledger   *pending.Ledger
	store    *scores.Store
	calendar contracts.Calendar
	log      *logger.Logger

	mu      sync.RWMutex
	weights contracts.MomentumWeights

	sleep func(time.Duration)
}

// New builds a Runner with the default momentum weights.
func New(fetcher contracts.Fetcher, prices contracts.PriceRepo, tr *tracker.Tracker, ledger *pending.Ledger, store *scores.Store, cal contracts.Calendar, log *logger.Logger) *Runner {
	return &Runner{
		fetcher:  fetcher,
		prices:   prices,
		tracker:  tr,
		ledger:   ledger,
		store:    store,
		calendar: cal,
		log:      log,
		weights:  contracts.DefaultMomentumWeights(),
		sleep:    time.Sleep,
	}
}

// Name satisfies scheduler.Job.
func (r *Runner) Name() string { return "price_poller" }

// Schedule satisfies scheduler.Job: a once-a-minute tick.
func (r *Runner) Schedule() string { return "0 * * * * *" }

// Weights returns the momentum weights currently in effect for post-ingest
// scoring.
func (r *Runner) Weights() contracts.MomentumWeights {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights
}

// SetWeights updates the momentum weights used by subsequent scoring calls.
func (r *Runner) SetWeights(w contracts.MomentumWeights) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weights = w.Normalized()
}

// ResetWeights restores the spec-mandated default momentum weights.
func (r *Runner) ResetWeights() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weights = contracts.DefaultMomentumWeights()
}

// Run is the scheduler entry point: it only starts the update cycle once per
// trading day, after close, and only if today has no bars yet.
func (r *Runner) Run(ctx context.Context) error {
	now := time.Now()
	if !r.calendar.ShouldUpdateData(now) {
		return nil
	}

	today := r.calendar.TradingDate(now)
	count, err := r.prices.CountBarsForDate(ctx, today)
	if err != nil {
		return fmt.Errorf("check today's bar count: %w", err)
	}
	if count > 0 {
		return nil
	}

	return r.RunCycle(ctx)
}

// RunCycle runs the full 5-wave update cycle unconditionally; exported so
// admin triggers and tests can invoke it outside the scheduler's
// once-per-day gate.
func (r *Runner) RunCycle(ctx context.Context) error {
	now := time.Now()
	today := r.calendar.TradingDate(now)
	yesterday := r.calendar.PrevTradingDate(now)
	universe, err := r.prices.StocksMissingRecentBar(ctx, today, yesterday)
	if err != nil {
		return fmt.Errorf("load price poller universe: %w", err)
	}
	if len(universe) == 0 {
		return nil
	}

	symbols := universe
	for wave := 1; wave <= maxWaves && len(symbols) > 0; wave++ {
		if wave > 1 {
			r.log.WithFields(map[string]interface{}{
				"wave":    wave,
				"backlog": len(symbols),
			}).Info("Price poller sleeping before retry wave")
			r.sleep(retryDelay)

			backlog, err := r.ledger.Backlog(ctx, contracts.OpKindPrices)
			if err != nil {
				return fmt.Errorf("reload pending backlog for wave %d: %w", wave, err)
			}
			symbols = symbolsOf(backlog)
			if len(symbols) == 0 {
				break
			}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.runWave(ctx, symbols)
	}
	return nil
}

func (r *Runner) runWave(ctx context.Context, symbols []string) {
	for i := 0; i < len(symbols); i += batchSize {
		if ctx.Err() != nil {
			return
		}
		end := i + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		r.runBatch(ctx, symbols[i:end])
	}
}

func (r *Runner) runBatch(ctx context.Context, symbols []string) {
	to := time.Now()
	from := to.AddDate(0, 0, -lookbackDays)

	results := r.fetcher.FetchBarsBatch(ctx, symbols, from, to)
	if aggregateFailure(symbols, results) {
		r.log.WithField("batch_size", len(symbols)).Warn("Batch price fetch failed entirely, falling back to per-symbol fetch")
		results = r.fetchPerSymbol(ctx, symbols, from, to)
	}

	for _, symbol := range symbols {
		result, ok := results[symbol]
		if !ok || result.Err != nil {
			var err error
			if ok {
				err = result.Err
			}
			r.handleFailure(ctx, symbol, err)
			continue
		}
		r.handleSuccess(ctx, symbol, result.Bars)
	}
}

// fetchPerSymbol is the batch-failure fallback: per-symbol FetchBars spaced
// 0.5s apart (spec.md §4.5).
func (r *Runner) fetchPerSymbol(ctx context.Context, symbols []string, from, to time.Time) map[string]contracts.FetchResult {
	out := make(map[string]contracts.FetchResult, len(symbols))
	for i, symbol := range symbols {
		if i > 0 {
			r.sleep(perSymbolSpacing)
		}
		bars, err := r.fetcher.FetchBars(ctx, symbol, from, to)
		out[symbol] = contracts.FetchResult{Bars: bars, Err: err}
	}
	return out
}

func (r *Runner) handleSuccess(ctx context.Context, symbol string, bars []contracts.PriceBar) {
	newBars, err := r.newBars(ctx, symbol, bars)
	if err != nil {
		r.handleFailure(ctx, symbol, err)
		return
	}

	if len(newBars) > 0 {
		if err := r.prices.UpsertPriceBars(ctx, newBars); err != nil {
			r.handleFailure(ctx, symbol, err)
			return
		}
	}

	lastDate := latestDate(bars)
	if err := r.tracker.MarkCompleted(ctx, symbol, len(bars), lastDate); err != nil {
		r.log.WithError(err).WithField("symbol", symbol).Error("Mark update completed failed")
	}

	if len(newBars) > 0 {
		if err := r.scoreAndPersist(ctx, symbol); err != nil {
			r.log.WithError(err).WithField("symbol", symbol).Warn("Scoring after price update failed")
		}
	}

	if err := r.ledger.Complete(ctx, symbol, contracts.OpKindPrices); err != nil {
		r.log.WithError(err).WithField("symbol", symbol).Error("Complete pending op failed")
	}
}

func (r *Runner) handleFailure(ctx context.Context, symbol string, err error) {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	if ferr := r.ledger.Enqueue(ctx, symbol, contracts.OpKindPrices, reason, nil); ferr != nil {
		r.log.WithError(ferr).WithField("symbol", symbol).Error("Enqueue pending op failed")
	}
	if ferr := r.tracker.MarkFailed(ctx, symbol); ferr != nil {
		r.log.WithError(ferr).WithField("symbol", symbol).Error("Mark update failed failed")
	}
}

// newBars computes returned_bars − existing_bar_dates for symbol (spec.md
// §4.5 step 2).
func (r *Runner) newBars(ctx context.Context, symbol string, bars []contracts.PriceBar) ([]contracts.PriceBar, error) {
	if len(bars) == 0 {
		return nil, nil
	}
	existing, err := r.prices.ExistingDates(ctx, symbol, bars[0].Date, bars[len(bars)-1].Date)
	if err != nil {
		return nil, fmt.Errorf("load existing dates for %s: %w", symbol, err)
	}
	out := make([]contracts.PriceBar, 0, len(bars))
	for _, b := range bars {
		if !existing[b.Date.Format("2006-01-02")] {
			out = append(out, b)
		}
	}
	return out, nil
}

// scoreAndPersist invokes the momentum strategy for symbol and persists the
// resulting row, synchronously, immediately after a successful bar upsert
// (spec.md §5's ordering guarantee: score rows never pre-date their bars).
func (r *Runner) scoreAndPersist(ctx context.Context, symbol string) error {
	bars, err := r.prices.GetPriceData(ctx, symbol, nil, nil)
	if err != nil {
		return fmt.Errorf("load price history for scoring: %w", err)
	}

	row, err := scoring.ComputeScore(contracts.StrategyMomentum, scoring.BarsFromPriceBars(bars), r.Weights())
	if err != nil {
		return fmt.Errorf("compute momentum score for %s: %w", symbol, err)
	}
	if row.InsufficientData {
		return nil
	}

	row.Symbol = symbol
	row.CalculationDate = r.calendar.TradingDate(time.Now()).Format("2006-01-02")
	row = scoring.SanitizeRow(row)

	if err := r.store.Upsert(ctx, row); err != nil {
		return fmt.Errorf("persist score row for %s: %w", symbol, err)
	}
	return nil
}

func symbolsOf(ops []contracts.PendingOp) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Symbol
	}
	return out
}

func latestDate(bars []contracts.PriceBar) time.Time {
	var latest time.Time
	for _, b := range bars {
		if b.Date.After(latest) {
			latest = b.Date
		}
	}
	return latest
}

// aggregateFailure reports whether results represents a total batch failure
// (every symbol errored, or the batch call returned nothing) — the signal
// for the per-symbol fallback (spec.md §4.5).
func aggregateFailure(symbols []string, results map[string]contracts.FetchResult) bool {
	if len(results) == 0 {
		return true
	}
	for _, symbol := range symbols {
		if res, ok := results[symbol]; ok && res.Err == nil {
			return false
		}
	}
	return true
}
