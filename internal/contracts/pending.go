package contracts

import "time"

// OpKind distinguishes the two backlog types the Pending-Ops Ledger tracks.
type OpKind string

const (
	OpKindPrices     OpKind = "prices"
	OpKindAttributes OpKind = "attributes"
)

// MaxRetries is the retry ceiling after which a pending op is considered
// exhausted and permanently skipped until an admin reset.
const MaxRetries = 5

// PendingOp is one row per (symbol, op_kind).
type PendingOp struct {
	Symbol       string
	Kind         OpKind
	RetryCount   int
	LastAttempt  time.Time
	ErrorMessage string
	TargetDate   *time.Time
	CreatedAt    time.Time
}

// Exhausted reports whether this op has hit the retry ceiling.
func (p PendingOp) Exhausted() bool {
	return p.RetryCount >= MaxRetries
}

// UpdateState is the Update Tracker's per-symbol status.
type UpdateState string

const (
	UpdateStatePending    UpdateState = "pending"
	UpdateStateInProgress UpdateState = "in_progress"
	UpdateStateCompleted  UpdateState = "completed"
	UpdateStateFailed     UpdateState = "failed"
)

// UpdateStatus is one row per symbol tracking the price-ingest state machine.
type UpdateStatus struct {
	Symbol        string
	LastUpdated   *time.Time
	Status        UpdateState
	TotalRecords  int
	LastPriceDate *time.Time
}
