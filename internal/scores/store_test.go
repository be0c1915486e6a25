package scores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis/rankengine/internal/contracts"
)

type fakeScoreRepo struct {
	rows      map[string][]contracts.ScoreRow
	bestDate  string
	bestErr   error
	latestErr error
}

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{rows: make(map[string][]contracts.ScoreRow)}
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

func (f *fakeScoreRepo) GetLatestScoreDate(_ context.Context) (string, error) {
	return f.bestDate, f.latestErr
}

func (f *fakeScoreRepo) GetBestScoreDate(_ context.Context) (string, error) {
	return f.bestDate, f.bestErr
}

func (f *fakeScoreRepo) GetStocksNeedingScoring(_ context.Context, date string, _ int) ([]string, error) {
	return nil, nil
}

func (f *fakeScoreRepo) HasScoreForDate(_ context.Context, symbol, date string) (bool, error) {
	for _, row := range f.rows[date+"/"+string(contracts.StrategyMomentum)] {
		if row.Symbol == symbol {
			return true, nil
		}
	}
	return false, nil
}

func TestStore_UpsertAndRead(t *testing.T) {
	repo := newFakeScoreRepo()
	store := New(repo, nil)
	ctx := context.Background()

	row := contracts.ScoreRow{Symbol: "TCS", CalculationDate: "2026-07-30", Strategy: contracts.StrategyMomentum, Score: 0.8}
	require.NoError(t, store.Upsert(ctx, row))

	rows, err := store.GetScoreRowsForDate(ctx, "2026-07-30", contracts.StrategyMomentum, contracts.ScoreFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TCS", rows[0].Symbol)
}

func TestStore_BestDate(t *testing.T) {
	repo := newFakeScoreRepo()
	repo.bestDate = "2026-07-29"
	store := New(repo, nil)

	date, err := store.BestDate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-07-29", date)
}

func TestStore_BestDate_NoRowsYetYieldsEmptyNotError(t *testing.T) {
	repo := newFakeScoreRepo()
	repo.bestErr = contracts.ErrNotFound
	store := New(repo, nil)

	date, err := store.BestDate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, date)
}

func TestStore_HasScoreForDate(t *testing.T) {
	repo := newFakeScoreRepo()
	store := New(repo, nil)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, contracts.ScoreRow{Symbol: "WIPRO", CalculationDate: "2026-07-30", Strategy: contracts.StrategyMomentum}))
	has, err := store.HasScoreForDate(ctx, "WIPRO", "2026-07-30")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = store.HasScoreForDate(ctx, "INFY", "2026-07-30")
	require.NoError(t, err)
	assert.False(t, has)
}
