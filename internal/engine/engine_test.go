package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis/rankengine/internal/calendar"
	"github.com/aegis/rankengine/internal/contracts"
	"github.com/aegis/rankengine/internal/pending"
	"github.com/aegis/rankengine/internal/pipeline"
	"github.com/aegis/rankengine/internal/pollers/attribute"
	"github.com/aegis/rankengine/internal/pollers/price"
	"github.com/aegis/rankengine/internal/scores"
	"github.com/aegis/rankengine/internal/tracker"
	"github.com/aegis/rankengine/pkg/config"
	"github.com/aegis/rankengine/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error"})
}

func testCalendar(t *testing.T) contracts.Calendar {
	t.Helper()
	cal, err := calendar.New(config.CalendarConfig{
		Timezone: "Asia/Kolkata", OpenHour: 9, OpenMinute: 15, CloseHour: 15, CloseMinute: 30,
	})
	require.NoError(t, err)
	return cal
}

// fakeMetadataRepo, fakePriceRepo, fakeScoreRepo, fakeTrackerRepo and
// fakePendingRepo follow the in-memory pattern established across the
// poller and store test suites.

type fakeMetadataRepo struct {
	rows map[string]contracts.StockMetadata
}

func (f *fakeMetadataRepo) GetStockMetadata(context.Context, contracts.MetadataFilter) ([]contracts.StockMetadata, error) {
	return nil, nil
}

func (f *fakeMetadataRepo) GetBySymbol(_ context.Context, symbol string) (contracts.StockMetadata, error) {
	m, ok := f.rows[symbol]
	if !ok {
		return contracts.StockMetadata{}, contracts.ErrNotFound
	}
	return m, nil
}

func (f *fakeMetadataRepo) GetTopStocksByMarketCap(_ context.Context, n int, _, _ *string) ([]contracts.StockMetadata, error) {
	var out []contracts.StockMetadata
	for _, m := range f.rows {
		out = append(out, m)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func (f *fakeMetadataRepo) UpdateMetadata(_ context.Context, symbol string, patch contracts.MetadataPatch) error {
	m := f.rows[symbol]
	if patch.Sector != nil {
		m.Sector = patch.Sector
	}
	f.rows[symbol] = m
	return nil
}

func (f *fakeMetadataRepo) MissingAttributeSymbols(context.Context) ([]string, error) { return nil, nil }

type fakePriceRepo struct {
	bars map[string][]contracts.PriceBar
}

func (f *fakePriceRepo) GetPriceData(_ context.Context, symbol string, _, _ *time.Time) ([]contracts.PriceBar, error) {
	return f.bars[symbol], nil
}
func (f *fakePriceRepo) UpsertPriceBars(context.Context, []contracts.PriceBar) error { return nil }
func (f *fakePriceRepo) HasBarForDate(context.Context, string, time.Time) (bool, error) {
	return false, nil
}
func (f *fakePriceRepo) CountBarsForDate(context.Context, time.Time) (int, error) { return 0, nil }
func (f *fakePriceRepo) ExistingDates(context.Context, string, time.Time, time.Time) (map[string]bool, error) {
	return map[string]bool{}, nil
}
func (f *fakePriceRepo) StocksMissingRecentBar(context.Context, time.Time, time.Time) ([]string, error) {
	return nil, nil
}

type fakeScoreRepo struct {
	rows     map[string][]contracts.ScoreRow
	bestDate string
}

func (f *fakeScoreRepo) UpsertScoreRow(_ context.Context, row contracts.ScoreRow) error {
	k := row.CalculationDate + "/" + string(row.Strategy)
	f.rows[k] = append(f.rows[k], row)
	return nil
}

func (f *fakeScoreRepo) GetScoreRowsForDate(_ context.Context, date string, strategy contracts.Strategy, _ contracts.ScoreFilter, limit int) ([]contracts.ScoreRow, error) {
	rows := f.rows[date+"/"+string(strategy)]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}
func (f *fakeScoreRepo) GetLatestScoreDate(context.Context) (string, error) { return f.bestDate, nil }
func (f *fakeScoreRepo) GetBestScoreDate(context.Context) (string, error)  { return f.bestDate, nil }
func (f *fakeScoreRepo) GetStocksNeedingScoring(context.Context, string, int) ([]string, error) {
	return nil, nil
}
func (f *fakeScoreRepo) HasScoreForDate(context.Context, string, string) (bool, error) {
	return false, nil
}

type fakeTrackerRepo struct{ cleared int }

func (f *fakeTrackerRepo) MarkStarted(context.Context, string) error { return nil }
func (f *fakeTrackerRepo) MarkCompleted(context.Context, string, int, time.Time) error {
	return nil
}
func (f *fakeTrackerRepo) MarkFailed(context.Context, string) error       { return nil }
func (f *fakeTrackerRepo) StocksNeedingUpdate(context.Context) ([]string, error) { return nil, nil }
func (f *fakeTrackerRepo) GetUpdateStatus(context.Context, string) (contracts.UpdateStatus, error) {
	return contracts.UpdateStatus{}, nil
}
func (f *fakeTrackerRepo) ClearFailedUpdates(context.Context) (int, error) {
	f.cleared = 3
	return f.cleared, nil
}

type fakePendingRepo struct {
	rows map[string]contracts.PendingOp
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{rows: make(map[string]contracts.PendingOp)}
}
func pkey(symbol string, kind contracts.OpKind) string { return symbol + "/" + string(kind) }

func (f *fakePendingRepo) Enqueue(_ context.Context, symbol string, kind contracts.OpKind, reason string, _ *time.Time) error {
	row := f.rows[pkey(symbol, kind)]
	row.Symbol, row.Kind, row.ErrorMessage = symbol, kind, reason
	row.RetryCount++
	f.rows[pkey(symbol, kind)] = row
	return nil
}
func (f *fakePendingRepo) Dequeue(_ context.Context, kind contracts.OpKind, maxRetries int) ([]contracts.PendingOp, error) {
	var out []contracts.PendingOp
	for _, row := range f.rows {
		if row.Kind == kind && row.RetryCount < maxRetries {
			out = append(out, row)
		}
	}
	return out, nil
}
func (f *fakePendingRepo) Exhausted(_ context.Context, kind contracts.OpKind) ([]contracts.PendingOp, error) {
	var out []contracts.PendingOp
	for _, row := range f.rows {
		if row.Kind == kind && row.RetryCount >= contracts.MaxRetries {
			out = append(out, row)
		}
	}
	return out, nil
}
func (f *fakePendingRepo) Remove(_ context.Context, symbol string, kind contracts.OpKind) error {
	delete(f.rows, pkey(symbol, kind))
	return nil
}
func (f *fakePendingRepo) ResetRetries(_ context.Context, kind contracts.OpKind) error {
	for k, row := range f.rows {
		if row.Kind == kind {
			row.RetryCount = 0
			f.rows[k] = row
		}
	}
	return nil
}
func (f *fakePendingRepo) HasOpenRow(_ context.Context, symbol string, kind contracts.OpKind) (bool, error) {
	row, ok := f.rows[pkey(symbol, kind)]
	if !ok {
		return false, nil
	}
	return row.RetryCount < contracts.MaxRetries, nil
}

type fakeFetcher struct{}

func (fakeFetcher) FetchBars(context.Context, string, time.Time, time.Time) ([]contracts.PriceBar, error) {
	return nil, nil
}
func (fakeFetcher) FetchBarsBatch(context.Context, []string, time.Time, time.Time) map[string]contracts.FetchResult {
	return nil
}
func (fakeFetcher) FetchFundamentals(context.Context, string) (contracts.MetadataPatch, error) {
	return contracts.MetadataPatch{}, nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeScoreRepo, *fakeTrackerRepo) {
	t.Helper()
	metadata := &fakeMetadataRepo{rows: map[string]contracts.StockMetadata{
		"TCS": {Symbol: "TCS"},
	}}
	priceRepo := &fakePriceRepo{bars: map[string][]contracts.PriceBar{}}
	scoreRepo := &fakeScoreRepo{rows: make(map[string][]contracts.ScoreRow), bestDate: "2026-07-30"}
	scoreStore := scores.New(scoreRepo, nil)

	exec := pipeline.New(metadata, priceRepo)

	trackerRepo := &fakeTrackerRepo{}
	tr := tracker.New(trackerRepo)

	priceLedgerRepo := newFakePendingRepo()
	priceLedger := pending.New(priceLedgerRepo, 0)
	attrLedgerRepo := newFakePendingRepo()
	attrLedger := pending.New(attrLedgerRepo, 0)

	cal := testCalendar(t)

	priceJob := price.New(fakeFetcher{}, priceRepo, tr, priceLedger, scoreStore, cal, testLogger())
	attrJob := attribute.New(fakeFetcher{}, metadata, attrLedger, 1, testLogger())

	eng := New(metadata, priceRepo, scoreStore, exec, priceJob, attrJob, tr, priceLedger, attrLedger, cal, testLogger())
	return eng, scoreRepo, trackerRepo
}

func TestComputeStrategyScores_ReadsBestDate(t *testing.T) {
	eng, scoreRepo, _ := newTestEngine(t)
	scoreRepo.rows["2026-07-30/momentum"] = []contracts.ScoreRow{
		{Symbol: "TCS", CalculationDate: "2026-07-30", Strategy: contracts.StrategyMomentum, Score: 0.9},
	}

	rows, err := eng.ComputeStrategyScores(context.Background(), contracts.StrategyMomentum, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TCS", rows[0].Symbol)
}

func TestComputeStrategyScores_NoDateYieldsEmpty(t *testing.T) {
	eng, scoreRepo, _ := newTestEngine(t)
	scoreRepo.bestDate = ""

	rows, err := eng.ComputeStrategyScores(context.Background(), contracts.StrategyMomentum, nil, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateMomentumWeights_PropagatesToPipelineAndPricePoller(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	custom := contracts.MomentumWeights{
		RawMomentum6M: 1, RawMomentum3M: 0, SmoothMomentum: 0,
		VolAdjMomentum: 0, ConsistencyScore: 0, TrendStrength: 0,
	}

	eng.UpdateMomentumWeights(custom)
	assert.Equal(t, custom, eng.pipeline.Weights())
	assert.Equal(t, custom, eng.priceJob.Weights())

	eng.ResetMomentumWeights()
	assert.Equal(t, contracts.DefaultMomentumWeights(), eng.pipeline.Weights())
	assert.Equal(t, contracts.DefaultMomentumWeights(), eng.priceJob.Weights())
}

func TestClearFailedUpdates_DelegatesToTracker(t *testing.T) {
	eng, _, trackerRepo := newTestEngine(t)
	n, err := eng.ClearFailedUpdates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, trackerRepo.cleared)
}

func TestGetMarketStatus_ReturnsCalendarClassification(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	status := eng.GetMarketStatus()
	assert.False(t, status.NextOpen.IsZero())
}

func TestListStocks_ReturnsMetadataRows(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	stocks, err := eng.ListStocks(context.Background(), 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "TCS", stocks[0].Symbol)
}

func TestTriggerAttributeUpdate_EnqueuesRequestedSymbols(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	require.NoError(t, eng.TriggerAttributeUpdate(context.Background(), []string{"TCS"}))
}
