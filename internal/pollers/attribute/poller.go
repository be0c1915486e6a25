// Package attribute is the Attribute Poller (C6): a continuously-looping
// task that drains the missing-fundamentals backlog, cooperatively pausing
// on rate limiting and sharding work across two instances without
// coordination. Ported from original_source/services/data-service/attribute_poller.py's
// cooldown/instance-sharding cycle, worker-pool shape grounded on teacher's
// collector channel + sync.WaitGroup fan-out.
package attribute

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aegis/rankengine/internal/contracts"
	"github.com/aegis/rankengine/internal/pending"
	"github.com/aegis/rankengine/pkg/logger"
)

const (
	batchSize        = 50
	workerCount      = 10
	cooldownDuration = 5 * time.Minute
)

// Runner implements scheduler.Job for the Attribute Poller.
type Runner struct {
	fetcher    contracts.Fetcher
	metadata   contracts.MetadataRepo
	ledger     *pending.Ledger
	instanceID int
	log        *logger.Logger

	mu            sync.Mutex
	cooldownUntil time.Time
}

// New builds a Runner sharding the backlog by instanceID (1 or 2).
func New(fetcher contracts.Fetcher, metadata contracts.MetadataRepo, ledger *pending.Ledger, instanceID int, log *logger.Logger) *Runner {
	return &Runner{
		fetcher:    fetcher,
		metadata:   metadata,
		ledger:     ledger,
		instanceID: instanceID,
		log:        log,
	}
}

// Name satisfies scheduler.Job.
func (r *Runner) Name() string { return "attribute_poller" }

// Schedule satisfies scheduler.Job: a 5-minute cadence.
func (r *Runner) Schedule() string { return "0 */5 * * * *" }

// Status reports the backlog the (out-of-scope) HTTP status endpoint would
// surface — ported from the original's get_attribute_status.
type Status struct {
	Pending       int
	Exhausted     int
	CooldownUntil time.Time
}

// GetStatus reads the current attribute backlog size, exhausted count and
// cooldown deadline.
func (r *Runner) GetStatus(ctx context.Context) (Status, error) {
	backlog, err := r.ledger.Backlog(ctx, contracts.OpKindAttributes)
	if err != nil {
		return Status{}, fmt.Errorf("read attribute backlog: %w", err)
	}
	exhausted, err := r.ledger.Exhausted(ctx, contracts.OpKindAttributes)
	if err != nil {
		return Status{}, fmt.Errorf("read exhausted attribute ops: %w", err)
	}
	return Status{
		Pending:       len(backlog),
		Exhausted:     len(exhausted),
		CooldownUntil: r.cooldownDeadline(),
	}, nil
}

func (r *Runner) cooldownDeadline() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cooldownUntil
}

func (r *Runner) inCooldown(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return now.Before(r.cooldownUntil)
}

func (r *Runner) startCooldown(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cooldownUntil = now.Add(cooldownDuration)
}

// Run executes one cycle of spec.md §4.6's algorithm.
func (r *Runner) Run(ctx context.Context) error {
	if r.inCooldown(time.Now()) {
		return nil
	}

	if err := r.EnsureMissingInPending(ctx); err != nil {
		return fmt.Errorf("ensure missing in pending: %w", err)
	}
	if err := r.CleanupCompleted(ctx); err != nil {
		return fmt.Errorf("cleanup completed: %w", err)
	}

	backlog, err := r.ledger.Backlog(ctx, contracts.OpKindAttributes)
	if err != nil {
		return fmt.Errorf("read attribute backlog: %w", err)
	}

	return r.processShard(ctx, r.shard(backlog))
}

// EnsureMissingInPending scans metadata for symbols with any of {sector,
// industry, current_price, market_cap} null and no open pending row, and
// enqueues them.
func (r *Runner) EnsureMissingInPending(ctx context.Context) error {
	symbols, err := r.metadata.MissingAttributeSymbols(ctx)
	if err != nil {
		return fmt.Errorf("load missing-attribute symbols: %w", err)
	}
	for _, symbol := range symbols {
		if err := r.ledger.EnqueueIfAbsent(ctx, symbol, contracts.OpKindAttributes, "missing attributes", nil); err != nil {
			return fmt.Errorf("enqueue %s: %w", symbol, err)
		}
	}
	return nil
}

// CleanupCompleted removes pending rows for symbols whose metadata now
// satisfies the completeness predicate (spec.md §4.6).
func (r *Runner) CleanupCompleted(ctx context.Context) error {
	backlog, err := r.ledger.Backlog(ctx, contracts.OpKindAttributes)
	if err != nil {
		return fmt.Errorf("read attribute backlog: %w", err)
	}
	for _, op := range backlog {
		meta, err := r.metadata.GetBySymbol(ctx, op.Symbol)
		if err != nil {
			continue
		}
		if meta.IsComplete() {
			if err := r.ledger.Complete(ctx, op.Symbol, contracts.OpKindAttributes); err != nil {
				return fmt.Errorf("complete %s: %w", op.Symbol, err)
			}
		}
	}
	return nil
}

// shard partitions backlog deterministically: instance 1 takes even
// indices, instance 2 odd, over a stable symbol ordering — work-stealing
// across two replicas without coordination (spec.md §4.6 step 5).
func (r *Runner) shard(backlog []contracts.PendingOp) []contracts.PendingOp {
	sort.Slice(backlog, func(i, j int) bool { return backlog[i].Symbol < backlog[j].Symbol })

	var out []contracts.PendingOp
	for i, op := range backlog {
		if i%2 == 0 && r.instanceID == 1 {
			out = append(out, op)
		} else if i%2 == 1 && r.instanceID == 2 {
			out = append(out, op)
		}
	}
	return out
}

func (r *Runner) processShard(ctx context.Context, shard []contracts.PendingOp) error {
	for i := 0; i < len(shard); i += batchSize {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		end := i + batchSize
		if end > len(shard) {
			end = len(shard)
		}
		if r.processBatch(ctx, shard[i:end]) {
			r.startCooldown(time.Now())
			r.log.Warn("Attribute poller hit a rate limit, pausing for cooldown")
			return nil
		}
	}
	return nil
}

// processBatch fetches fundamentals for batch through a bounded worker
// pool, returning true if any response was rate-limited.
func (r *Runner) processBatch(ctx context.Context, batch []contracts.PendingOp) bool {
	jobs := make(chan contracts.PendingOp)
	var wg sync.WaitGroup
	var rateLimited atomic.Bool

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for op := range jobs {
				r.processOne(ctx, op, &rateLimited)
			}
		}()
	}

	for _, op := range batch {
		jobs <- op
	}
	close(jobs)
	wg.Wait()

	return rateLimited.Load()
}

func (r *Runner) processOne(ctx context.Context, op contracts.PendingOp, rateLimited *atomic.Bool) {
	patch, err := r.fetcher.FetchFundamentals(ctx, op.Symbol)
	if err != nil {
		if errors.Is(err, contracts.ErrRateLimited) {
			rateLimited.Store(true)
			return
		}
		if ferr := r.ledger.Enqueue(ctx, op.Symbol, contracts.OpKindAttributes, err.Error(), nil); ferr != nil {
			r.log.WithError(ferr).WithField("symbol", op.Symbol).Error("Enqueue pending op failed")
		}
		return
	}

	if err := r.metadata.UpdateMetadata(ctx, op.Symbol, patch); err != nil {
		r.log.WithError(err).WithField("symbol", op.Symbol).Error("Update metadata failed")
		return
	}

	r.finishSymbol(ctx, op.Symbol)
}

func (r *Runner) finishSymbol(ctx context.Context, symbol string) {
	meta, err := r.metadata.GetBySymbol(ctx, symbol)
	if err != nil {
		r.log.WithError(err).WithField("symbol", symbol).Error("Reload metadata after update failed")
		return
	}

	if meta.IsComplete() {
		if err := r.ledger.Complete(ctx, symbol, contracts.OpKindAttributes); err != nil {
			r.log.WithError(err).WithField("symbol", symbol).Error("Complete pending op failed")
		}
		return
	}

	reason := fmt.Sprintf("still missing: %v", meta.MissingFields())
	if err := r.ledger.Enqueue(ctx, symbol, contracts.OpKindAttributes, reason, nil); err != nil {
		r.log.WithError(err).WithField("symbol", symbol).Error("Re-enqueue pending op failed")
	}
}
