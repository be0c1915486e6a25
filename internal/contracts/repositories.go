package contracts

import (
	"context"
	"time"
)

// MetadataRepo is the Store Gateway's typed surface over stock_metadata.
type MetadataRepo interface {
	GetStockMetadata(ctx context.Context, filter MetadataFilter) ([]StockMetadata, error)
	GetBySymbol(ctx context.Context, symbol string) (StockMetadata, error)
	GetTopStocksByMarketCap(ctx context.Context, n int, industry, sector *string) ([]StockMetadata, error)
	UpdateMetadata(ctx context.Context, symbol string, patch MetadataPatch) error
	MissingAttributeSymbols(ctx context.Context) ([]string, error)
}

// PriceRepo is the Store Gateway's typed surface over price_bar.
type PriceRepo interface {
	GetPriceData(ctx context.Context, symbol string, from, to *time.Time) ([]PriceBar, error)
	UpsertPriceBars(ctx context.Context, bars []PriceBar) error
	HasBarForDate(ctx context.Context, symbol string, date time.Time) (bool, error)
	CountBarsForDate(ctx context.Context, date time.Time) (int, error)
	ExistingDates(ctx context.Context, symbol string, from, to time.Time) (map[string]bool, error)
	StocksMissingRecentBar(ctx context.Context, today, yesterday time.Time) ([]string, error)
}

// ScoreRepo is the Store Gateway's typed surface over score_row.
type ScoreRepo interface {
	UpsertScoreRow(ctx context.Context, row ScoreRow) error
	GetScoreRowsForDate(ctx context.Context, date string, strategy Strategy, filter ScoreFilter, limit int) ([]ScoreRow, error)
	GetLatestScoreDate(ctx context.Context) (string, error)
	GetBestScoreDate(ctx context.Context) (string, error)
	GetStocksNeedingScoring(ctx context.Context, date string, limit int) ([]string, error)
	HasScoreForDate(ctx context.Context, symbol, date string) (bool, error)
}

// PendingRepo is the Store Gateway's typed surface over pending_op.
type PendingRepo interface {
	Enqueue(ctx context.Context, symbol string, kind OpKind, reason string, targetDate *time.Time) error
	Dequeue(ctx context.Context, kind OpKind, maxRetries int) ([]PendingOp, error)
	Exhausted(ctx context.Context, kind OpKind) ([]PendingOp, error)
	Remove(ctx context.Context, symbol string, kind OpKind) error
	ResetRetries(ctx context.Context, kind OpKind) error
	HasOpenRow(ctx context.Context, symbol string, kind OpKind) (bool, error)
}

// TrackerRepo is the Store Gateway's typed surface over update_status.
type TrackerRepo interface {
	MarkStarted(ctx context.Context, symbol string) error
	MarkCompleted(ctx context.Context, symbol string, totalRecords int, lastPriceDate time.Time) error
	MarkFailed(ctx context.Context, symbol string) error
	StocksNeedingUpdate(ctx context.Context) ([]string, error)
	GetUpdateStatus(ctx context.Context, symbol string) (UpdateStatus, error)
	ClearFailedUpdates(ctx context.Context) (int, error)
}

// Fetcher is the upstream market-data provider contract (C2).
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]PriceBar, error)
	FetchBarsBatch(ctx context.Context, symbols []string, from, to time.Time) map[string]FetchResult
	FetchFundamentals(ctx context.Context, symbol string) (MetadataPatch, error)
}

// FetchResult is one symbol's outcome within a batch fetch.
type FetchResult struct {
	Bars []PriceBar
	Err  error
}

// Calendar is the Market Calendar contract (C10).
type Calendar interface {
	IsMarketOpen(now time.Time) bool
	ShouldCalculateMomentum(now time.Time) bool
	ShouldUpdateData(now time.Time) bool
	TradingDate(now time.Time) time.Time
	PrevTradingDate(now time.Time) time.Time
	NextMarketOpen(now time.Time) time.Time
}
