// Package scores is the Score Store (C8): a thin wrapper over the Store
// Gateway's ScoreRepo, adding a read-through cache for the ranking read path
// and the "best available date" fallback (spec.md §4.1).
package scores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aegis/rankengine/internal/contracts"
	"github.com/aegis/rankengine/pkg/redis"
)

// cacheTTL bounds how long a ranking snapshot may be served stale; apart
// from the one page Upsert deletes, cached pages are only dropped by expiry.
const cacheTTL = 5 * time.Minute

// Store wraps contracts.ScoreRepo with an optional read-through cache.
type Store struct {
	repo  contracts.ScoreRepo
	cache *redis.Cache
}

// New builds a Store. cache may be nil, in which case every read goes
// straight to repo (the teacher's Cache.Get/Set are themselves no-ops when
// Redis is disabled, so this is mostly a convenience for tests).
func New(repo contracts.ScoreRepo, cache *redis.Cache) *Store {
	return &Store{repo: repo, cache: cache}
}

// Upsert persists one score row and deletes the cached unfiltered, unlimited
// page for its date and strategy; pages cached under a filter or a limit are
// left to expire.
func (s *Store) Upsert(ctx context.Context, row contracts.ScoreRow) error {
	if err := s.repo.UpsertScoreRow(ctx, row); err != nil {
		return fmt.Errorf("upsert score row: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cacheKey(row.CalculationDate, row.Strategy, contracts.ScoreFilter{}, 0))
	}
	return nil
}

// GetScoreRowsForDate reads the ranked rows for date/strategy/filter, served
// from cache when available.
func (s *Store) GetScoreRowsForDate(ctx context.Context, date string, strategy contracts.Strategy, filter contracts.ScoreFilter, limit int) ([]contracts.ScoreRow, error) {
	if s.cache == nil {
		return s.repo.GetScoreRowsForDate(ctx, date, strategy, filter, limit)
	}

	var rows []contracts.ScoreRow
	key := cacheKey(date, strategy, filter, limit)
	err := s.cache.GetOrSet(ctx, key, &rows, cacheTTL, func() (interface{}, error) {
		return s.repo.GetScoreRowsForDate(ctx, date, strategy, filter, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("get score rows for date %s: %w", date, err)
	}
	return rows, nil
}

// BestDate returns the most recent calculation_date with a substantially
// complete universe, falling back to the highest-coverage of the last 30
// persisted dates (spec.md §4.1). An empty string with a nil error means no
// score rows exist yet — a missing-data condition, not a failure (spec §7).
func (s *Store) BestDate(ctx context.Context) (string, error) {
	date, err := s.repo.GetBestScoreDate(ctx)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get best score date: %w", err)
	}
	return date, nil
}

// LatestDate returns the most recent calculation_date with any rows at all.
func (s *Store) LatestDate(ctx context.Context) (string, error) {
	date, err := s.repo.GetLatestScoreDate(ctx)
	if err != nil {
		return "", fmt.Errorf("get latest score date: %w", err)
	}
	return date, nil
}

// StocksNeedingScoring returns symbols that lack a score row for date,
// ordered by market cap.
func (s *Store) StocksNeedingScoring(ctx context.Context, date string, limit int) ([]string, error) {
	symbols, err := s.repo.GetStocksNeedingScoring(ctx, date, limit)
	if err != nil {
		return nil, fmt.Errorf("get stocks needing scoring: %w", err)
	}
	return symbols, nil
}

// HasScoreForDate reports whether symbol already has a score row for date.
func (s *Store) HasScoreForDate(ctx context.Context, symbol, date string) (bool, error) {
	ok, err := s.repo.HasScoreForDate(ctx, symbol, date)
	if err != nil {
		return false, fmt.Errorf("has score for date: %w", err)
	}
	return ok, nil
}

func cacheKey(date string, strategy contracts.Strategy, filter contracts.ScoreFilter, limit int) string {
	sector := ""
	if filter.Sector != nil {
		sector = *filter.Sector
	}
	industry := ""
	if filter.Industry != nil {
		industry = *filter.Industry
	}
	return redis.ScoreKey(date, string(strategy), sector, industry, limit)
}
