package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis/rankengine/internal/contracts"
)

// PendingRepository implements contracts.PendingRepo over pending_op — the
// durable backlog the Price Poller and Attribute Poller use to retry symbols
// that failed an earlier cycle (grounded on update_tracker.py's
// insert-on-conflict idiom, adapted to a retry-count ledger).
type PendingRepository struct {
	pool *pgxpool.Pool
}

// NewPendingRepository builds a PendingRepository.
func NewPendingRepository(pool *pgxpool.Pool) *PendingRepository {
	return &PendingRepository{pool: pool}
}

// Enqueue inserts or bumps a pending op's retry_count for (symbol, kind).
func (r *PendingRepository) Enqueue(ctx context.Context, symbol string, kind contracts.OpKind, reason string, targetDate *time.Time) error {
	query := `
		INSERT INTO pending_op (symbol, op_kind, retry_count, last_attempt, error_message, target_date)
		VALUES ($1, $2, 1, now(), $3, $4)
		ON CONFLICT (symbol, op_kind) DO UPDATE SET
			retry_count = pending_op.retry_count + 1,
			last_attempt = now(),
			error_message = $3,
			target_date = COALESCE($4, pending_op.target_date)
	`
	if _, err := r.pool.Exec(ctx, query, symbol, string(kind), reason, targetDate); err != nil {
		return fmt.Errorf("enqueue pending op %s/%s: %w", symbol, kind, err)
	}
	return nil
}

// Dequeue returns pending ops of kind whose retry_count is below maxRetries,
// oldest created_at first — the Attribute/Price Poller's backlog read.
func (r *PendingRepository) Dequeue(ctx context.Context, kind contracts.OpKind, maxRetries int) ([]contracts.PendingOp, error) {
	query := `
		SELECT symbol, op_kind, retry_count, last_attempt, error_message, target_date, created_at
		FROM pending_op
		WHERE op_kind = $1 AND retry_count < $2
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, string(kind), maxRetries)
	if err != nil {
		return nil, fmt.Errorf("dequeue pending ops for %s: %w", kind, err)
	}
	defer rows.Close()
	return scanPendingOps(rows)
}

// Exhausted returns pending ops of kind that have hit contracts.MaxRetries —
// permanently skipped until an admin reset.
func (r *PendingRepository) Exhausted(ctx context.Context, kind contracts.OpKind) ([]contracts.PendingOp, error) {
	query := `
		SELECT symbol, op_kind, retry_count, last_attempt, error_message, target_date, created_at
		FROM pending_op
		WHERE op_kind = $1 AND retry_count >= $2
		ORDER BY last_attempt ASC NULLS FIRST
	`
	rows, err := r.pool.Query(ctx, query, string(kind), contracts.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("query exhausted pending ops for %s: %w", kind, err)
	}
	defer rows.Close()
	return scanPendingOps(rows)
}

func scanPendingOps(rows pgx.Rows) ([]contracts.PendingOp, error) {
	var out []contracts.PendingOp
	for rows.Next() {
		var p contracts.PendingOp
		var kind string
		if err := rows.Scan(&p.Symbol, &kind, &p.RetryCount, &p.LastAttempt, &p.ErrorMessage, &p.TargetDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending op: %w", err)
		}
		p.Kind = contracts.OpKind(kind)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Remove deletes a pending op once it succeeds.
func (r *PendingRepository) Remove(ctx context.Context, symbol string, kind contracts.OpKind) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM pending_op WHERE symbol = $1 AND op_kind = $2`, symbol, string(kind)); err != nil {
		return fmt.Errorf("remove pending op %s/%s: %w", symbol, kind, err)
	}
	return nil
}

// ResetRetries zeroes retry_count and clears error_message for every op of
// kind, exhausted or not — the admin recovery path.
func (r *PendingRepository) ResetRetries(ctx context.Context, kind contracts.OpKind) error {
	query := `UPDATE pending_op SET retry_count = 0, error_message = NULL WHERE op_kind = $1`
	if _, err := r.pool.Exec(ctx, query, string(kind)); err != nil {
		return fmt.Errorf("reset retries for %s: %w", kind, err)
	}
	return nil
}

// HasOpenRow reports whether symbol already has a non-exhausted pending op
// of kind, used to avoid duplicate enqueues.
func (r *PendingRepository) HasOpenRow(ctx context.Context, symbol string, kind contracts.OpKind) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pending_op WHERE symbol = $1 AND op_kind = $2 AND retry_count < $3)`
	err := r.pool.QueryRow(ctx, query, symbol, string(kind), contracts.MaxRetries).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check open pending op for %s/%s: %w", symbol, kind, err)
	}
	return exists, nil
}
