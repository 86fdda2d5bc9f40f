package scoring

import "errors"

// Typed errors surfaced across the ingest/query boundary.
var (
	// ErrUnknownSignalType rejects ingest of a signal type the taxonomy does
	// not register. Weight and decay parameters are mandatory for scoring, so
	// unregistered types are never silently accepted.
	ErrUnknownSignalType = errors.New("unknown signal type")

	// ErrInvalidConfidence rejects confidence values outside [0, 1].
	ErrInvalidConfidence = errors.New("confidence outside [0, 1]")

	// ErrInvalidEntityType rejects entity types other than company/contact.
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrNotFound means an entity has no score yet. This is an expected state
	// for fresh entities, not an engine failure.
	ErrNotFound = errors.New("no score for entity")

	// ErrSignalNotActive rejects a dismiss of an already expired or dismissed
	// signal; those states are terminal.
	ErrSignalNotActive = errors.New("signal not active")

	// ErrRecomputeTimeout means a recompute exceeded its time budget.
	// Transient; callers may retry.
	ErrRecomputeTimeout = errors.New("recompute timed out")

	// ErrStoreUnavailable wraps signal store failures that persisted through
	// the bounded internal retries.
	ErrStoreUnavailable = errors.New("signal store unavailable")
)
