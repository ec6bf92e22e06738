package entities

import "errors"

// Engine error taxonomy. Callers match with errors.Is; infrastructure wraps
// these with context via fmt.Errorf("...: %w", ...).
var (
	// ErrNotFound means a referenced entity, suggestion, or job does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a concurrent actor won: duplicate feedback on an
	// already-actioned suggestion, a lost weight compare-and-swap, or a second
	// active job for the same saga.
	ErrConflict = errors.New("conflict")

	// ErrRateLimited means too many job starts within the rolling window.
	ErrRateLimited = errors.New("rate limited")

	// ErrValidation means out-of-range scores, unknown types, or
	// self-referential pairs.
	ErrValidation = errors.New("validation failed")

	// ErrOracleTimeout means the semantic oracle did not answer in time.
	// Non-fatal: the one feature is omitted.
	ErrOracleTimeout = errors.New("oracle timeout")

	// ErrJobFailed means a batch exceeded its wall-clock budget.
	ErrJobFailed = errors.New("job failed")
)
