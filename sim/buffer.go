// buffer.go
//
// Buffer is the only place state lives between ticks. Each buffer backs one
// port of one entity and is mutated only by that entity's transfer function
// (or by the batch solver's closed-form update).

package sim

import "fmt"

// Buffer is a bounded store of a single item kind. While non-empty it is
// locked to the kind it holds; an optional filter further restricts which
// kinds it will ever accept.
type Buffer struct {
	capacity int64
	count    int64
	kind     ItemKind
	filter   []ItemKind // nil = any kind
}

// NewBuffer creates an empty buffer with the given capacity.
func NewBuffer(capacity int64) Buffer {
	if capacity <= 0 {
		panic(fmt.Sprintf("buffer capacity must be positive, got %d", capacity))
	}
	return Buffer{capacity: capacity}
}

// Capacity returns the maximum quantity the buffer can hold.
func (b *Buffer) Capacity() int64 { return b.capacity }

// Count returns the quantity currently held.
func (b *Buffer) Count() int64 { return b.count }

// Kind returns the item kind currently held. Meaningful only when Count > 0.
func (b *Buffer) Kind() ItemKind { return b.kind }

// IsEmpty reports whether the buffer holds nothing.
func (b *Buffer) IsEmpty() bool { return b.count == 0 }

// Space returns how much more quantity the buffer can accept.
func (b *Buffer) Space() int64 { return b.capacity - b.count }

// SetFilter restricts the buffer to the given kinds. nil clears the filter.
// The filter applies on top of the one-kind-at-a-time rule.
func (b *Buffer) SetFilter(kinds []ItemKind) { b.filter = kinds }

// Accepts reports whether a stack of the given kind could be pushed right
// now (ignoring space). False means a push would signal ErrKindConflict.
func (b *Buffer) Accepts(kind ItemKind) bool {
	if b.filter != nil {
		ok := false
		for _, k := range b.filter {
			if k == kind {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return b.count == 0 || b.kind == kind
}

// Push offers qty items of the given kind and returns how much was accepted,
// which is at most Space(). A kind mismatch accepts nothing and returns
// ErrKindConflict; the caller retries next tick or reroutes.
func (b *Buffer) Push(kind ItemKind, qty int64) (int64, error) {
	if qty < 0 {
		panic(fmt.Sprintf("negative push quantity %d", qty))
	}
	if qty == 0 {
		return 0, nil
	}
	if !b.Accepts(kind) {
		return 0, ErrKindConflict
	}
	accepted := min(qty, b.Space())
	b.kind = kind
	b.count += accepted
	b.check()
	return accepted, nil
}

// Pop removes up to max items and returns them as a stack. An empty buffer
// returns an empty stack.
func (b *Buffer) Pop(max int64) Stack {
	if max < 0 {
		panic(fmt.Sprintf("negative pop quantity %d", max))
	}
	removed := min(max, b.count)
	b.count -= removed
	b.check()
	return Stack{Kind: b.kind, Count: removed}
}

// check panics if the occupancy invariant is violated. Such a state can only
// arise from a bug in the engine, never from normal operation.
func (b *Buffer) check() {
	if b.count < 0 || b.count > b.capacity {
		panic(fmt.Sprintf("buffer occupancy %d outside [0, %d]", b.count, b.capacity))
	}
}
