package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis/rankengine/internal/contracts"
)

// TrackerRepository implements contracts.TrackerRepo over update_status.
// Ported from the original stock_update_tracker table (update_tracker.py).
type TrackerRepository struct {
	pool *pgxpool.Pool
}

// NewTrackerRepository builds a TrackerRepository.
func NewTrackerRepository(pool *pgxpool.Pool) *TrackerRepository {
	return &TrackerRepository{pool: pool}
}

// MarkStarted flips a symbol's status to in_progress.
func (r *TrackerRepository) MarkStarted(ctx context.Context, symbol string) error {
	query := `
		INSERT INTO update_status (symbol, update_status, updated_at)
		VALUES ($1, 'in_progress', now())
		ON CONFLICT (symbol) DO UPDATE SET
			update_status = 'in_progress',
			updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, symbol); err != nil {
		return fmt.Errorf("mark update started for %s: %w", symbol, err)
	}
	return nil
}

// MarkCompleted records a successful ingest cycle for symbol.
func (r *TrackerRepository) MarkCompleted(ctx context.Context, symbol string, totalRecords int, lastPriceDate time.Time) error {
	query := `
		INSERT INTO update_status (symbol, last_updated, update_status, total_records, last_price_date, updated_at)
		VALUES ($1, CURRENT_DATE, 'completed', $2, $3, now())
		ON CONFLICT (symbol) DO UPDATE SET
			last_updated = CURRENT_DATE,
			update_status = 'completed',
			total_records = $2,
			last_price_date = $3,
			updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, symbol, totalRecords, lastPriceDate); err != nil {
		return fmt.Errorf("mark update completed for %s: %w", symbol, err)
	}
	return nil
}

// MarkFailed flips a symbol's status to failed.
func (r *TrackerRepository) MarkFailed(ctx context.Context, symbol string) error {
	query := `
		INSERT INTO update_status (symbol, update_status, updated_at)
		VALUES ($1, 'failed', now())
		ON CONFLICT (symbol) DO UPDATE SET
			update_status = 'failed',
			updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, symbol); err != nil {
		return fmt.Errorf("mark update failed for %s: %w", symbol, err)
	}
	return nil
}

// StocksNeedingUpdate returns symbols, ordered by market cap desc, that are
// untracked, stale (not updated today), or previously failed.
func (r *TrackerRepository) StocksNeedingUpdate(ctx context.Context) ([]string, error) {
	query := `
		SELECT m.symbol
		FROM stock_metadata m
		LEFT JOIN update_status u ON u.symbol = m.symbol
		WHERE u.symbol IS NULL
			OR u.last_updated < CURRENT_DATE
			OR u.update_status = 'failed'
		ORDER BY m.market_cap DESC NULLS LAST
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stocks needing update: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, symbol)
	}
	return out, rows.Err()
}

// GetUpdateStatus returns one symbol's tracker row, or contracts.ErrNotFound.
func (r *TrackerRepository) GetUpdateStatus(ctx context.Context, symbol string) (contracts.UpdateStatus, error) {
	query := `
		SELECT symbol, last_updated, update_status, total_records, last_price_date
		FROM update_status WHERE symbol = $1
	`
	var s contracts.UpdateStatus
	var status string
	err := r.pool.QueryRow(ctx, query, symbol).Scan(&s.Symbol, &s.LastUpdated, &status, &s.TotalRecords, &s.LastPriceDate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return contracts.UpdateStatus{}, contracts.ErrNotFound
		}
		return contracts.UpdateStatus{}, fmt.Errorf("get update status for %s: %w", symbol, err)
	}
	s.Status = contracts.UpdateState(status)
	return s, nil
}

// ClearFailedUpdates resets every failed row back to pending and returns the
// number of rows reset.
func (r *TrackerRepository) ClearFailedUpdates(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE update_status SET update_status = 'pending', updated_at = now()
		WHERE update_status = 'failed'
	`)
	if err != nil {
		return 0, fmt.Errorf("clear failed updates: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
