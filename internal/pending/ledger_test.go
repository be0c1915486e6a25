package pending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis/rankengine/internal/contracts"
)

// fakePendingRepo is an in-memory contracts.PendingRepo for unit testing the
// Ledger's business logic without a live Postgres.
type fakePendingRepo struct {
	rows map[string]contracts.PendingOp
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{rows: make(map[string]contracts.PendingOp)}
}

func key(symbol string, kind contracts.OpKind) string { return symbol + "/" + string(kind) }

func (f *fakePendingRepo) Enqueue(_ context.Context, symbol string, kind contracts.OpKind, reason string, targetDate *time.Time) error {
	k := key(symbol, kind)
	row := f.rows[k]
	row.Symbol = symbol
	row.Kind = kind
	row.RetryCount++
	row.ErrorMessage = reason
	row.LastAttempt = time.Now()
	if targetDate != nil {
		row.TargetDate = targetDate
	}
	f.rows[k] = row
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
	delete(f.rows, key(symbol, kind))
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
	row, ok := f.rows[key(symbol, kind)]
	if !ok {
		return false, nil
	}
	return row.RetryCount < contracts.MaxRetries, nil
}

func TestLedger_EnqueueIfAbsent_SkipsOpenRow(t *testing.T) {
	repo := newFakePendingRepo()
	ledger := New(repo, 0)
	ctx := context.Background()

	require.NoError(t, ledger.EnqueueIfAbsent(ctx, "TCS", contracts.OpKindPrices, "timeout", nil))
	require.NoError(t, ledger.EnqueueIfAbsent(ctx, "TCS", contracts.OpKindPrices, "timeout again", nil))

	row := repo.rows[key("TCS", contracts.OpKindPrices)]
	assert.Equal(t, 1, row.RetryCount)
}

func TestLedger_Backlog_ExcludesExhausted(t *testing.T) {
	repo := newFakePendingRepo()
	ledger := New(repo, contracts.MaxRetries)
	ctx := context.Background()

	for i := 0; i < contracts.MaxRetries; i++ {
		require.NoError(t, ledger.Enqueue(ctx, "INFY", contracts.OpKindAttributes, "rate limited", nil))
	}
	require.NoError(t, ledger.Enqueue(ctx, "WIPRO", contracts.OpKindAttributes, "timeout", nil))

	backlog, err := ledger.Backlog(ctx, contracts.OpKindAttributes)
	require.NoError(t, err)
	require.Len(t, backlog, 1)
	assert.Equal(t, "WIPRO", backlog[0].Symbol)

	exhausted, err := ledger.Exhausted(ctx, contracts.OpKindAttributes)
	require.NoError(t, err)
	require.Len(t, exhausted, 1)
	assert.Equal(t, "INFY", exhausted[0].Symbol)
}

func TestLedger_Complete_RemovesRow(t *testing.T) {
	repo := newFakePendingRepo()
	ledger := New(repo, 0)
	ctx := context.Background()

	require.NoError(t, ledger.Enqueue(ctx, "HDFC", contracts.OpKindPrices, "err", nil))
	require.NoError(t, ledger.Complete(ctx, "HDFC", contracts.OpKindPrices))

	_, ok := repo.rows[key("HDFC", contracts.OpKindPrices)]
	assert.False(t, ok)
}

func TestLedger_ResetRetries(t *testing.T) {
	repo := newFakePendingRepo()
	ledger := New(repo, contracts.MaxRetries)
	ctx := context.Background()

	for i := 0; i < contracts.MaxRetries; i++ {
		require.NoError(t, ledger.Enqueue(ctx, "ITC", contracts.OpKindPrices, "err", nil))
	}
	require.NoError(t, ledger.ResetRetries(ctx, contracts.OpKindPrices))

	backlog, err := ledger.Backlog(ctx, contracts.OpKindPrices)
	require.NoError(t, err)
	require.Len(t, backlog, 1)
	assert.Equal(t, 0, backlog[0].RetryCount)
}
