// Package engine is the facade the outer surfaces (CLI, and any future HTTP
// layer) call through: it wires the Store Gateway, Pipeline Executor, Price
// Poller, Attribute Poller, Score Store and Market Calendar behind the
// operation set spec.md §6 exposes to external collaborators. Grounded on
// the teacher's cmd/quant/commands init*() wiring functions, lifted into a
// reusable package so both the CLI and tests can construct one engine.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/aegis/rankengine/internal/contracts"
	"github.com/aegis/rankengine/internal/pending"
	"github.com/aegis/rankengine/internal/pipeline"
	"github.com/aegis/rankengine/internal/pollers/attribute"
	"github.com/aegis/rankengine/internal/pollers/price"
	"github.com/aegis/rankengine/internal/scores"
	"github.com/aegis/rankengine/internal/tracker"
	"github.com/aegis/rankengine/pkg/logger"
)

// Engine exposes the operations external collaborators drive: read paths
// over metadata/prices/scores, pipeline execution, poller triggers and
// admin recovery actions.
type Engine struct {
	metadata  contracts.MetadataRepo
	prices    contracts.PriceRepo
	scores    *scores.Store
	pipeline  *pipeline.Executor
	priceJob  *price.Runner
	attrJob   *attribute.Runner
	tracker   *tracker.Tracker
	priceLedger *pending.Ledger
	attrLedger  *pending.Ledger
	calendar  contracts.Calendar
	log       *logger.Logger
}

// New assembles an Engine from its already-constructed components.
func New(
	metadata contracts.MetadataRepo,
	prices contracts.PriceRepo,
	scoreStore *scores.Store,
	exec *pipeline.Executor,
	priceJob *price.Runner,
	attrJob *attribute.Runner,
	tr *tracker.Tracker,
	priceLedger *pending.Ledger,
	attrLedger *pending.Ledger,
	cal contracts.Calendar,
	log *logger.Logger,
) *Engine {
	return &Engine{
		metadata:    metadata,
		prices:      prices,
		scores:      scoreStore,
		pipeline:    exec,
		priceJob:    priceJob,
		attrJob:     attrJob,
		tracker:     tr,
		priceLedger: priceLedger,
		attrLedger:  attrLedger,
		calendar:    cal,
		log:         log,
	}
}

// ListStocks returns stock metadata, optionally narrowed by industry/sector.
func (e *Engine) ListStocks(ctx context.Context, limit int, industry, sector *string) ([]contracts.StockMetadata, error) {
	stocks, err := e.metadata.GetTopStocksByMarketCap(ctx, limit, industry, sector)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	return stocks, nil
}

// GetPriceHistory returns symbol's last `days` calendar days of bars.
func (e *Engine) GetPriceHistory(ctx context.Context, symbol string, days int) ([]contracts.PriceBar, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -days)
	bars, err := e.prices.GetPriceData(ctx, symbol, &from, &to)
	if err != nil {
		return nil, fmt.Errorf("get price history for %s: %w", symbol, err)
	}
	return bars, nil
}

// ComputeStrategyScores returns the most recently available ranked rows for
// strategy, falling back to the best-coverage date when the latest date is
// incomplete (spec.md §4.1).
func (e *Engine) ComputeStrategyScores(ctx context.Context, strategy contracts.Strategy, industry, sector *string, topN int) ([]contracts.ScoreRow, error) {
	date, err := e.scores.BestDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve best score date: %w", err)
	}
	if date == "" {
		return nil, nil
	}
	rows, err := e.scores.GetScoreRowsForDate(ctx, date, strategy, contracts.ScoreFilter{Industry: industry, Sector: sector}, topN)
	if err != nil {
		return nil, fmt.Errorf("compute strategy scores: %w", err)
	}
	return rows, nil
}

// RunPipeline executes a sequential narrowing pipeline over stages.
func (e *Engine) RunPipeline(ctx context.Context, stages []contracts.PipelineStage) (contracts.PipelineResult, error) {
	result, err := e.pipeline.Run(ctx, stages)
	if err != nil {
		return contracts.PipelineResult{}, fmt.Errorf("run pipeline: %w", err)
	}
	return result, nil
}

// MarketStatus reports the Market Calendar's classification of now.
type MarketStatus struct {
	IsOpen         bool
	TradingDate    time.Time
	PrevTradingDate time.Time
	NextOpen       time.Time
}

// GetMarketStatus reports whether the market is open right now plus the
// surrounding trading-date arithmetic.
func (e *Engine) GetMarketStatus() MarketStatus {
	now := time.Now()
	return MarketStatus{
		IsOpen:          e.calendar.IsMarketOpen(now),
		TradingDate:     e.calendar.TradingDate(now),
		PrevTradingDate: e.calendar.PrevTradingDate(now),
		NextOpen:        e.calendar.NextMarketOpen(now),
	}
}

// UpdateMomentumWeights updates the weights used by both the Pipeline
// Executor and the Price Poller's post-ingest scoring — the two components
// that compute momentum scores independently must never drift apart.
func (e *Engine) UpdateMomentumWeights(w contracts.MomentumWeights) {
	e.pipeline.SetWeights(w)
	e.priceJob.SetWeights(w)
}

// ResetMomentumWeights restores both components to the spec-mandated
// defaults.
func (e *Engine) ResetMomentumWeights() {
	e.pipeline.ResetWeights()
	e.priceJob.ResetWeights()
}

// TriggerPriceUpdate runs one price-ingest cycle immediately, bypassing the
// scheduler's once-per-day gate — the admin "force refresh" action.
func (e *Engine) TriggerPriceUpdate(ctx context.Context) error {
	if err := e.priceJob.RunCycle(ctx); err != nil {
		return fmt.Errorf("trigger price update: %w", err)
	}
	return nil
}

// TriggerAttributeUpdate runs one attribute-poller cycle immediately for
// whatever backlog currently exists; if symbols is non-empty, it first
// ensures each is enqueued before running the cycle.
func (e *Engine) TriggerAttributeUpdate(ctx context.Context, symbols []string) error {
	for _, symbol := range symbols {
		if err := e.attrLedger.EnqueueIfAbsent(ctx, symbol, contracts.OpKindAttributes, "admin trigger", nil); err != nil {
			return fmt.Errorf("enqueue %s for attribute update: %w", symbol, err)
		}
	}
	if err := e.attrJob.Run(ctx); err != nil {
		return fmt.Errorf("trigger attribute update: %w", err)
	}
	return nil
}

// ResetAttributeRetries clears the exhausted attribute backlog back to
// retry_count 0.
func (e *Engine) ResetAttributeRetries(ctx context.Context) error {
	if err := e.attrLedger.ResetRetries(ctx, contracts.OpKindAttributes); err != nil {
		return fmt.Errorf("reset attribute retries: %w", err)
	}
	return nil
}

// ResetPriceRetries clears the exhausted price backlog back to retry_count 0.
func (e *Engine) ResetPriceRetries(ctx context.Context) error {
	if err := e.priceLedger.ResetRetries(ctx, contracts.OpKindPrices); err != nil {
		return fmt.Errorf("reset price retries: %w", err)
	}
	return nil
}

// ClearFailedUpdates resets every failed Update Tracker row back to pending,
// returning the number of rows reset.
func (e *Engine) ClearFailedUpdates(ctx context.Context) (int, error) {
	n, err := e.tracker.ClearFailedUpdates(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear failed updates: %w", err)
	}
	return n, nil
}

// AttributeStatus reports the Attribute Poller's backlog and cooldown state.
func (e *Engine) AttributeStatus(ctx context.Context) (attribute.Status, error) {
	status, err := e.attrJob.GetStatus(ctx)
	if err != nil {
		return attribute.Status{}, fmt.Errorf("get attribute status: %w", err)
	}
	return status, nil
}
