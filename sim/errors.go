// errors.go
//
// Error taxonomy for the engine. Capacity overruns are never errors: a push
// beyond available space is handled locally by partial acceptance. A buffer
// observed outside [0, capacity] is a programming error and panics.

package sim

import "errors"

var (
	// ErrKindConflict is reported when a stack of one item kind is offered
	// to a non-empty buffer holding (or filtered to) another kind. Callers
	// retry next tick or reroute; it is never fatal.
	ErrKindConflict = errors.New("item kind conflicts with buffer contents")

	// ErrInvalidBatchRequest is reported when Advance is asked for fewer
	// than one tick. No state is mutated.
	ErrInvalidBatchRequest = errors.New("tick count must be >= 1")

	// ErrTopologyViolation is reported when a topology edit would create a
	// dangling edge or a duplicate port binding. The topology is left
	// unchanged.
	ErrTopologyViolation = errors.New("topology violation")

	// ErrNotIdle is reported when a topology edit or rate change arrives
	// while the scheduler is mid-advance. Edits are only legal between ticks.
	ErrNotIdle = errors.New("engine is advancing; edits are only permitted while idle")
)
