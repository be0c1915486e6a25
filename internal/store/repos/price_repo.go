package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis/rankengine/internal/contracts"
)

// PriceRepository implements contracts.PriceRepo over price_bar.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository builds a PriceRepository.
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// GetPriceData returns bars for symbol, optionally bounded by [from, to],
// ascending by date.
func (r *PriceRepository) GetPriceData(ctx context.Context, symbol string, from, to *time.Time) ([]contracts.PriceBar, error) {
	query := `
		SELECT symbol, date, open, high, low, close, volume
		FROM price_bar
		WHERE symbol = $1
			AND ($2::date IS NULL OR date >= $2)
			AND ($3::date IS NULL OR date <= $3)
		ORDER BY date ASC
	`
	rows, err := r.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query price data for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []contracts.PriceBar
	for rows.Next() {
		var b contracts.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan price bar: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertPriceBars writes bars inside one transaction, overwriting on
// (symbol, date) conflict — the upstream-revises-a-bar policy (spec §3).
func (r *PriceRepository) UpsertPriceBars(ctx context.Context, bars []contracts.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert price bars transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_bar (symbol, date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			updated_at = now()
	`
	for _, b := range bars {
		if !b.Valid() {
			return fmt.Errorf("invalid OHLC for %s on %s: %w", b.Symbol, b.Date, contracts.ErrValidation)
		}
		if _, err := tx.Exec(ctx, query, b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("upsert price bar %s/%s: %w", b.Symbol, b.Date, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert price bars transaction: %w", err)
	}
	return nil
}

// HasBarForDate reports whether symbol already has a bar for date — used by
// the Price Poller's idempotent-cycle check.
func (r *PriceRepository) HasBarForDate(ctx context.Context, symbol string, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM price_bar WHERE symbol = $1 AND date = $2)`, symbol, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check bar existence for %s: %w", symbol, err)
	}
	return exists, nil
}

// CountBarsForDate counts how many symbols already have a bar for date — the
// single count query the Price Poller uses to decide whether today's cycle
// already ran (spec §4.5).
func (r *PriceRepository) CountBarsForDate(ctx context.Context, date time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM price_bar WHERE date = $1`, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bars for date: %w", err)
	}
	return count, nil
}

// StocksMissingRecentBar returns symbols lacking a price_bar row for either
// today or yesterday, ordered by market_cap desc — the Price Poller's wave-1
// universe (spec.md §4.5 step 1), distinct from the Update Tracker's
// status-based StocksNeedingUpdate (spec.md §4.4): a symbol can be stamped
// completed in update_status yet still be missing a recent bar after a
// partial prior run, and only this bars-existence check catches that gap.
func (r *PriceRepository) StocksMissingRecentBar(ctx context.Context, today, yesterday time.Time) ([]string, error) {
	query := `
		SELECT m.symbol
		FROM stock_metadata m
		WHERE NOT EXISTS (
			SELECT 1 FROM price_bar p
			WHERE p.symbol = m.symbol AND p.date IN ($1, $2)
		)
		ORDER BY m.market_cap DESC NULLS LAST, m.symbol ASC
	`
	rows, err := r.pool.Query(ctx, query, today, yesterday)
	if err != nil {
		return nil, fmt.Errorf("query stocks missing recent bar: %w", err)
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

// ExistingDates returns the set of dates (as "YYYY-MM-DD") already stored
// for symbol within [from, to], used to compute new_bars = returned - existing.
func (r *PriceRepository) ExistingDates(ctx context.Context, symbol string, from, to time.Time) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT date FROM price_bar WHERE symbol = $1 AND date >= $2 AND date <= $3`, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query existing dates for %s: %w", symbol, err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan existing date: %w", err)
		}
		out[d.Format("2006-01-02")] = true
	}
	return out, rows.Err()
}
