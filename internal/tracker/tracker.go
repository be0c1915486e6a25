// Package tracker is the Update Tracker (C4): per-symbol last-updated date
// and status, sitting directly on top of the Store Gateway's TrackerRepo.
// Ported from original_source/backend/models/update_tracker.py's
// mark_update_started/completed/failed state machine.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/aegis/rankengine/internal/contracts"
)

// Tracker wraps contracts.TrackerRepo; the Price Poller records each
// symbol's outcome with MarkCompleted or MarkFailed and does not call
// MarkStarted.
type Tracker struct {
	repo contracts.TrackerRepo
}

// New builds a Tracker backed by repo.
func New(repo contracts.TrackerRepo) *Tracker {
	return &Tracker{repo: repo}
}

// MarkStarted flips symbol's status to in_progress at the start of an
// ingest attempt.
func (t *Tracker) MarkStarted(ctx context.Context, symbol string) error {
	if err := t.repo.MarkStarted(ctx, symbol); err != nil {
		return fmt.Errorf("mark update started for %s: %w", symbol, err)
	}
	return nil
}

// MarkCompleted records a successful ingest for symbol.
func (t *Tracker) MarkCompleted(ctx context.Context, symbol string, totalRecords int, lastPriceDate time.Time) error {
	if err := t.repo.MarkCompleted(ctx, symbol, totalRecords, lastPriceDate); err != nil {
		return fmt.Errorf("mark update completed for %s: %w", symbol, err)
	}
	return nil
}

// MarkFailed records a failed ingest for symbol; StocksNeedingUpdate will
// pick it up again on the next cycle.
func (t *Tracker) MarkFailed(ctx context.Context, symbol string) error {
	if err := t.repo.MarkFailed(ctx, symbol); err != nil {
		return fmt.Errorf("mark update failed for %s: %w", symbol, err)
	}
	return nil
}

// StocksNeedingUpdate returns symbols, ordered by market cap, that are
// untracked, stale, or previously failed.
func (t *Tracker) StocksNeedingUpdate(ctx context.Context) ([]string, error) {
	symbols, err := t.repo.StocksNeedingUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stocks needing update: %w", err)
	}
	return symbols, nil
}

// Status returns one symbol's tracker row.
func (t *Tracker) Status(ctx context.Context, symbol string) (contracts.UpdateStatus, error) {
	status, err := t.repo.GetUpdateStatus(ctx, symbol)
	if err != nil {
		return contracts.UpdateStatus{}, fmt.Errorf("get update status for %s: %w", symbol, err)
	}
	return status, nil
}

// ClearFailedUpdates resets every failed row to pending, returning the
// number of rows reset — the admin recovery path.
func (t *Tracker) ClearFailedUpdates(ctx context.Context) (int, error) {
	n, err := t.repo.ClearFailedUpdates(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear failed updates: %w", err)
	}
	return n, nil
}
