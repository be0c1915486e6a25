// Package pending is the Pending-Ops Ledger (C3): a persistent queue of
// (symbol, op_kind) backlog entries with bounded retries, sitting directly on
// top of the Store Gateway's PendingRepo. Grounded on
// original_source/backend/models/update_tracker.py's retry bookkeeping,
// generalized from a single status column to a per-kind retry ledger.
package pending

import (
	"context"
	"fmt"
	"time"

	"github.com/aegis/rankengine/internal/contracts"
)

// Ledger wraps contracts.PendingRepo with the retry-ceiling semantics the
// Price and Attribute Pollers both depend on.
type Ledger struct {
	repo       contracts.PendingRepo
	maxRetries int
}

// New builds a Ledger backed by repo, enforcing maxRetries before an op is
// considered exhausted (defaults to contracts.MaxRetries if maxRetries <= 0).
func New(repo contracts.PendingRepo, maxRetries int) *Ledger {
	if maxRetries <= 0 {
		maxRetries = contracts.MaxRetries
	}
	return &Ledger{repo: repo, maxRetries: maxRetries}
}

// EnqueueIfAbsent adds symbol to the backlog for kind unless it already has
// an open (non-exhausted) row, so rediscovering a symbol that is already
// queued does not bump its retry_count.
func (l *Ledger) EnqueueIfAbsent(ctx context.Context, symbol string, kind contracts.OpKind, reason string, targetDate *time.Time) error {
	open, err := l.repo.HasOpenRow(ctx, symbol, kind)
	if err != nil {
		return fmt.Errorf("check open pending op for %s: %w", symbol, err)
	}
	if open {
		return nil
	}
	return l.Enqueue(ctx, symbol, kind, reason, targetDate)
}

// Enqueue records a failed attempt for (symbol, kind), bumping retry_count.
func (l *Ledger) Enqueue(ctx context.Context, symbol string, kind contracts.OpKind, reason string, targetDate *time.Time) error {
	if err := l.repo.Enqueue(ctx, symbol, kind, reason, targetDate); err != nil {
		return fmt.Errorf("enqueue pending op %s/%s: %w", symbol, kind, err)
	}
	return nil
}

// Backlog returns the non-exhausted pending ops of kind, ready for retry.
func (l *Ledger) Backlog(ctx context.Context, kind contracts.OpKind) ([]contracts.PendingOp, error) {
	ops, err := l.repo.Dequeue(ctx, kind, l.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("read backlog for %s: %w", kind, err)
	}
	return ops, nil
}

// Exhausted returns the ops of kind that have hit the retry ceiling and will
// not be retried without an admin ResetRetries.
func (l *Ledger) Exhausted(ctx context.Context, kind contracts.OpKind) ([]contracts.PendingOp, error) {
	ops, err := l.repo.Exhausted(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("read exhausted ops for %s: %w", kind, err)
	}
	return ops, nil
}

// Complete removes a symbol's pending op for kind once it has succeeded.
func (l *Ledger) Complete(ctx context.Context, symbol string, kind contracts.OpKind) error {
	if err := l.repo.Remove(ctx, symbol, kind); err != nil {
		return fmt.Errorf("complete pending op %s/%s: %w", symbol, kind, err)
	}
	return nil
}

// ResetRetries sets every op of kind, exhausted or not, back to retry_count 0
// — the admin recovery path (cmd/rankengine admin reset-attribute-retries and
// reset-price-retries).
func (l *Ledger) ResetRetries(ctx context.Context, kind contracts.OpKind) error {
	if err := l.repo.ResetRetries(ctx, kind); err != nil {
		return fmt.Errorf("reset retries for %s: %w", kind, err)
	}
	return nil
}
