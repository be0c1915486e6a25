package contracts

import "errors"

// Error taxonomy shared by the Fetcher, pollers and Store Gateway (spec §7).
// Callers type-check with errors.Is against these sentinels; wrapping with
// fmt.Errorf("...: %w", err) preserves the match.
var (
	// ErrRateLimited is recoverable via cooldown; the caller pauses the
	// whole process-local poller for five minutes.
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrTransient is retryable and counts against MaxRetries.
	ErrTransient = errors.New("transient upstream error")

	// ErrUnknown covers a permanently-absent symbol; retryable (the
	// provider may be stale) but counts against the retry limit.
	ErrUnknown = errors.New("unknown symbol")

	// ErrValidation is fatal for the row in question: the row is
	// discarded and the symbol is not retried.
	ErrValidation = errors.New("schema validation failed")

	// ErrNotFound indicates the Store Gateway has no matching row.
	ErrNotFound = errors.New("not found")
)
