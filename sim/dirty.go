// dirty.go
//
// Activity tracking. An entity is evaluated on a tick only if something
// changed for it since it last settled: new input arrived, space freed
// downstream, or topology around it was edited. Everything else is
// quiescent and costs nothing per tick.

package sim

// DirtyReason is a bitmask describing why an entity needs evaluation.
type DirtyReason uint8

const (
	ReasonInputArrived DirtyReason = 1 << iota
	ReasonSpaceFreed
	ReasonTopology
)

func (r DirtyReason) String() string {
	switch {
	case r == 0:
		return "none"
	case r&ReasonTopology != 0:
		return "topology"
	case r&ReasonInputArrived != 0 && r&ReasonSpaceFreed != 0:
		return "input+space"
	case r&ReasonInputArrived != 0:
		return "input"
	default:
		return "space"
	}
}

// ActivityTracker holds the dirty set and a cached topological order used
// to drain it upstream-first. The order is invalidated on topology edits
// and rebuilt lazily on the next drain.
type ActivityTracker struct {
	dirty map[EntityID]DirtyReason
	graph *Graph

	order      []EntityID
	orderStale bool
}

// NewActivityTracker creates a tracker bound to a graph.
func NewActivityTracker(g *Graph) *ActivityTracker {
	return &ActivityTracker{
		dirty:      make(map[EntityID]DirtyReason),
		graph:      g,
		orderStale: true,
	}
}

// MarkDirty adds an entity to the dirty set, merging reasons. Idempotent.
func (t *ActivityTracker) MarkDirty(id EntityID, reason DirtyReason) {
	t.dirty[id] |= reason
}

// Quiescent reports whether nothing needs evaluation.
func (t *ActivityTracker) Quiescent() bool {
	return len(t.dirty) == 0
}

// Len returns the size of the dirty set.
func (t *ActivityTracker) Len() int {
	return len(t.dirty)
}

// Invalidate discards the cached evaluation order after a topology edit.
func (t *ActivityTracker) Invalidate() {
	t.orderStale = true
}

// Drain empties the dirty set into dst in upstream-before-downstream order
// and returns the extended slice. Reasons are returned alongside so the
// caller can distinguish topology wakeups from flow wakeups.
func (t *ActivityTracker) Drain(dst []EntityID, reasons map[EntityID]DirtyReason) []EntityID {
	if len(t.dirty) == 0 {
		return dst
	}
	if t.orderStale {
		t.order = t.graph.topoOrder()
		t.orderStale = false
	}
	for _, id := range t.order {
		if reason, ok := t.dirty[id]; ok {
			dst = append(dst, id)
			if reasons != nil {
				reasons[id] = reason
			}
			delete(t.dirty, id)
		}
	}
	// Entities dirtied between order rebuilds that were since removed
	// leave stale handles behind; drop them.
	for id := range t.dirty {
		delete(t.dirty, id)
	}
	return dst
}
