package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis/rankengine/internal/contracts"
)

// ScoreRepository implements contracts.ScoreRepo over score_row.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository builds a ScoreRepository.
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// UpsertScoreRow is an idempotent upsert keyed by (symbol, calculation_date,
// strategy). Calling it twice with the same row leaves the table
// byte-identical except for the update timestamp (spec §8).
func (r *ScoreRepository) UpsertScoreRow(ctx context.Context, row contracts.ScoreRow) error {
	aux, err := json.Marshal(row.Aux)
	if err != nil {
		return fmt.Errorf("marshal score aux for %s: %w", row.Symbol, err)
	}

	query := `
		INSERT INTO score_row (
			symbol, calculation_date, strategy, score, insufficient_data,
			momentum_score, fip_quality, raw_momentum_12_2,
			true_momentum_6m, true_momentum_3m, true_momentum_1m,
			raw_return_6m, raw_return_3m, raw_return_1m, aux
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (symbol, calculation_date, strategy) DO UPDATE SET
			score = EXCLUDED.score,
			insufficient_data = EXCLUDED.insufficient_data,
			momentum_score = EXCLUDED.momentum_score,
			fip_quality = EXCLUDED.fip_quality,
			raw_momentum_12_2 = EXCLUDED.raw_momentum_12_2,
			true_momentum_6m = EXCLUDED.true_momentum_6m,
			true_momentum_3m = EXCLUDED.true_momentum_3m,
			true_momentum_1m = EXCLUDED.true_momentum_1m,
			raw_return_6m = EXCLUDED.raw_return_6m,
			raw_return_3m = EXCLUDED.raw_return_3m,
			raw_return_1m = EXCLUDED.raw_return_1m,
			aux = EXCLUDED.aux,
			updated_at = now()
	`
	_, err = r.pool.Exec(ctx, query,
		row.Symbol, row.CalculationDate, string(row.Strategy), row.Score, row.InsufficientData,
		row.MomentumScore, row.FIPQuality, row.RawMomentum122,
		row.TrueMomentum6M, row.TrueMomentum3M, row.TrueMomentum1M,
		row.RawReturn6M, row.RawReturn3M, row.RawReturn1M, aux,
	)
	if err != nil {
		return fmt.Errorf("upsert score row %s/%s/%s: %w", row.Symbol, row.CalculationDate, row.Strategy, err)
	}
	return nil
}

// GetScoreRowsForDate joins with metadata for industry/sector filters,
// orders by market_cap desc, score desc, and limits.
func (r *ScoreRepository) GetScoreRowsForDate(ctx context.Context, date string, strategy contracts.Strategy, filter contracts.ScoreFilter, limit int) ([]contracts.ScoreRow, error) {
	query := `
		SELECT s.symbol, s.calculation_date, s.strategy, s.score, s.insufficient_data,
			s.momentum_score, s.fip_quality, s.raw_momentum_12_2,
			s.true_momentum_6m, s.true_momentum_3m, s.true_momentum_1m,
			s.raw_return_6m, s.raw_return_3m, s.raw_return_1m, s.aux
		FROM score_row s
		JOIN stock_metadata m ON m.symbol = s.symbol
		WHERE s.calculation_date = $1 AND s.strategy = $2
			AND ($3::text IS NULL OR m.industry = $3)
			AND ($4::text IS NULL OR m.sector = $4)
		ORDER BY m.market_cap DESC NULLS LAST, s.score DESC
		LIMIT $5
	`
	rows, err := r.pool.Query(ctx, query, date, string(strategy), filter.Industry, filter.Sector, limit)
	if err != nil {
		return nil, fmt.Errorf("query score rows for date %s: %w", date, err)
	}
	defer rows.Close()

	var out []contracts.ScoreRow
	for rows.Next() {
		var row contracts.ScoreRow
		var strat string
		var aux []byte
		if err := rows.Scan(&row.Symbol, &row.CalculationDate, &strat, &row.Score, &row.InsufficientData,
			&row.MomentumScore, &row.FIPQuality, &row.RawMomentum122,
			&row.TrueMomentum6M, &row.TrueMomentum3M, &row.TrueMomentum1M,
			&row.RawReturn6M, &row.RawReturn3M, &row.RawReturn1M, &aux); err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		row.Strategy = contracts.Strategy(strat)
		if len(aux) > 0 {
			if err := json.Unmarshal(aux, &row.Aux); err != nil {
				return nil, fmt.Errorf("unmarshal score aux: %w", err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetLatestScoreDate returns the most recent calculation_date with any rows.
func (r *ScoreRepository) GetLatestScoreDate(ctx context.Context) (string, error) {
	var date string
	err := r.pool.QueryRow(ctx, `SELECT to_char(MAX(calculation_date), 'YYYY-MM-DD') FROM score_row`).Scan(&date)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", contracts.ErrNotFound
		}
		return "", fmt.Errorf("get latest score date: %w", err)
	}
	return date, nil
}

// GetBestScoreDate implements spec §4.1: the most recent calculation_date
// whose row-count exceeds 1000, else the date with the highest row-count
// among the last 30 persisted dates.
func (r *ScoreRepository) GetBestScoreDate(ctx context.Context) (string, error) {
	const fullyScoredThreshold = 1000

	query := `
		SELECT to_char(calculation_date, 'YYYY-MM-DD') AS date, COUNT(*) AS cnt
		FROM score_row
		GROUP BY calculation_date
		ORDER BY calculation_date DESC
		LIMIT 30
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return "", fmt.Errorf("query score date counts: %w", err)
	}
	defer rows.Close()

	type dateCount struct {
		date  string
		count int
	}
	var counts []dateCount
	for rows.Next() {
		var dc dateCount
		if err := rows.Scan(&dc.date, &dc.count); err != nil {
			return "", fmt.Errorf("scan date count: %w", err)
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(counts) == 0 {
		return "", contracts.ErrNotFound
	}

	for _, dc := range counts {
		if dc.count > fullyScoredThreshold {
			return dc.date, nil
		}
	}

	best := counts[0]
	for _, dc := range counts[1:] {
		if dc.count > best.count {
			best = dc
		}
	}
	return best.date, nil
}

// GetStocksNeedingScoring returns symbols ordered by market cap that lack a
// score row for date, across all strategies.
func (r *ScoreRepository) GetStocksNeedingScoring(ctx context.Context, date string, limit int) ([]string, error) {
	query := `
		SELECT m.symbol
		FROM stock_metadata m
		LEFT JOIN score_row s ON s.symbol = m.symbol AND s.calculation_date = $1
		WHERE s.symbol IS NULL
		ORDER BY m.market_cap DESC NULLS LAST
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, date, limit)
	if err != nil {
		return nil, fmt.Errorf("query stocks needing scoring: %w", err)
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

// HasScoreForDate reports whether symbol has any score row for date.
func (r *ScoreRepository) HasScoreForDate(ctx context.Context, symbol, date string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM score_row WHERE symbol = $1 AND calculation_date = $2)`, symbol, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check score existence for %s: %w", symbol, err)
	}
	return exists, nil
}
