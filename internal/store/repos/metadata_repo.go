// Package repos holds the Store Gateway's typed per-table repositories: one
// concern per table, each implementing an interface declared in
// internal/contracts.
package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis/rankengine/internal/contracts"
)

// MetadataRepository implements contracts.MetadataRepo over stock_metadata.
type MetadataRepository struct {
	pool *pgxpool.Pool
}

// NewMetadataRepository builds a MetadataRepository.
func NewMetadataRepository(pool *pgxpool.Pool) *MetadataRepository {
	return &MetadataRepository{pool: pool}
}

const metadataColumns = `
	symbol, company_name, sector, industry, exchange, market_cap, market_cap_rank,
	current_price, last_price_date,
	pe, pb, beta, roe, roa, gross_margin, operating_margin, profit_margin,
	dividend_yield, debt_to_equity, current_ratio, high_52_week, low_52_week,
	volume, shares_outstanding
`

func scanMetadata(row pgx.Row) (contracts.StockMetadata, error) {
	var m contracts.StockMetadata
	err := row.Scan(
		&m.Symbol, &m.CompanyName, &m.Sector, &m.Industry, &m.Exchange, &m.MarketCap, &m.MarketCapRank,
		&m.CurrentPrice, &m.LastPriceDate,
		&m.PE, &m.PB, &m.Beta, &m.ROE, &m.ROA, &m.GrossMargin, &m.OperatingMargin, &m.ProfitMargin,
		&m.DividendYield, &m.DebtToEquity, &m.CurrentRatio, &m.High52Week, &m.Low52Week,
		&m.Volume, &m.SharesOutstanding,
	)
	return m, err
}

// GetStockMetadata returns stock_metadata rows matching filter, ordered by
// market_cap_rank asc with ties broken by symbol.
func (r *MetadataRepository) GetStockMetadata(ctx context.Context, filter contracts.MetadataFilter) ([]contracts.StockMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM stock_metadata WHERE ($1::text IS NULL OR industry = $1) AND ($2::text IS NULL OR sector = $2)
		ORDER BY market_cap_rank ASC NULLS LAST, symbol ASC`, metadataColumns)

	rows, err := r.pool.Query(ctx, query, filter.Industry, filter.Sector)
	if err != nil {
		return nil, fmt.Errorf("query stock metadata: %w", err)
	}
	defer rows.Close()

	var out []contracts.StockMetadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock metadata: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetBySymbol returns one stock_metadata row, or contracts.ErrNotFound.
func (r *MetadataRepository) GetBySymbol(ctx context.Context, symbol string) (contracts.StockMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM stock_metadata WHERE symbol = $1`, metadataColumns)
	m, err := scanMetadata(r.pool.QueryRow(ctx, query, symbol))
	if err != nil {
		if err == pgx.ErrNoRows {
			return contracts.StockMetadata{}, contracts.ErrNotFound
		}
		return contracts.StockMetadata{}, fmt.Errorf("get stock metadata %s: %w", symbol, err)
	}
	return m, nil
}

// GetTopStocksByMarketCap returns the top n symbols by market_cap, optionally
// filtered by industry/sector — the stage-1 universe for the Pipeline
// Executor.
func (r *MetadataRepository) GetTopStocksByMarketCap(ctx context.Context, n int, industry, sector *string) ([]contracts.StockMetadata, error) {
	query := fmt.Sprintf(`SELECT %s FROM stock_metadata
		WHERE ($1::text IS NULL OR industry = $1) AND ($2::text IS NULL OR sector = $2)
		ORDER BY market_cap DESC NULLS LAST, symbol ASC
		LIMIT $3`, metadataColumns)

	rows, err := r.pool.Query(ctx, query, industry, sector, n)
	if err != nil {
		return nil, fmt.Errorf("query top stocks by market cap: %w", err)
	}
	defer rows.Close()

	var out []contracts.StockMetadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock metadata: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMetadata applies a partial patch to one symbol's row; nil fields in
// patch leave the stored column untouched via COALESCE.
func (r *MetadataRepository) UpdateMetadata(ctx context.Context, symbol string, patch contracts.MetadataPatch) error {
	query := `
		UPDATE stock_metadata SET
			sector = COALESCE($2, sector),
			industry = COALESCE($3, industry),
			current_price = COALESCE($4, current_price),
			market_cap = COALESCE($5, market_cap),
			pe = COALESCE($6, pe),
			pb = COALESCE($7, pb),
			beta = COALESCE($8, beta),
			roe = COALESCE($9, roe),
			roa = COALESCE($10, roa),
			gross_margin = COALESCE($11, gross_margin),
			operating_margin = COALESCE($12, operating_margin),
			profit_margin = COALESCE($13, profit_margin),
			dividend_yield = COALESCE($14, dividend_yield),
			debt_to_equity = COALESCE($15, debt_to_equity),
			current_ratio = COALESCE($16, current_ratio),
			high_52_week = COALESCE($17, high_52_week),
			low_52_week = COALESCE($18, low_52_week),
			volume = COALESCE($19, volume),
			shares_outstanding = COALESCE($20, shares_outstanding),
			updated_at = now()
		WHERE symbol = $1
	`
	_, err := r.pool.Exec(ctx, query, symbol,
		patch.Sector, patch.Industry, patch.CurrentPrice, patch.MarketCap,
		patch.PE, patch.PB, patch.Beta, patch.ROE, patch.ROA,
		patch.GrossMargin, patch.OperatingMargin, patch.ProfitMargin,
		patch.DividendYield, patch.DebtToEquity, patch.CurrentRatio,
		patch.High52Week, patch.Low52Week, patch.Volume, patch.SharesOutstanding,
	)
	if err != nil {
		return fmt.Errorf("update metadata for %s: %w", symbol, err)
	}
	return nil
}

// MissingAttributeSymbols returns symbols with any of {sector, industry,
// current_price, market_cap} null — the Attribute Poller's scan target.
func (r *MetadataRepository) MissingAttributeSymbols(ctx context.Context) ([]string, error) {
	query := `
		SELECT symbol FROM stock_metadata
		WHERE sector IS NULL OR industry IS NULL OR current_price IS NULL OR market_cap IS NULL
		ORDER BY market_cap DESC NULLS LAST
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query missing-attribute symbols: %w", err)
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
