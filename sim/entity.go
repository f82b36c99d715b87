// entity.go
//
// Entities are the nodes of the network. The variant set is closed: every
// transfer dispatch switches exhaustively over EntityKind so that adding a
// variant forces each call site to be revisited.

package sim

import "fmt"

// EntityID is an integer handle into the graph's entity arena. Handles, not
// pointers, keep cyclic layouts safe to represent.
type EntityID int32

// NoEntity is the zero-value-adjacent sentinel for "no entity".
const NoEntity EntityID = -1

// EntityKind enumerates the closed set of entity variants. Boundary
// entities come in two concrete kinds, KindSource and KindSink.
type EntityKind uint8

const (
	KindBelt EntityKind = iota
	KindSplitter
	KindMerger
	KindSource
	KindSink
)

func (k EntityKind) String() string {
	switch k {
	case KindBelt:
		return "belt"
	case KindSplitter:
		return "splitter"
	case KindMerger:
		return "merger"
	case KindSource:
		return "source"
	case KindSink:
		return "sink"
	default:
		return fmt.Sprintf("EntityKind(%d)", uint8(k))
	}
}

// Entity is one node in the arena. It exclusively owns its port buffers;
// only its own transfer function (and the batch solver's closed-form update)
// mutates them.
type Entity struct {
	id   EntityID
	kind EntityKind
	in   []Buffer
	out  []Buffer

	// rate is the per-tick transfer capacity. 0 means unlimited, which is
	// the default for splitters and mergers (their throughput is bounded by
	// neighbor buffers instead).
	rate int64

	// Belt state: transport delay in ticks, modeled as a fixed-length FIFO
	// of in-flight stacks. stages[len-1] is next to reach the output.
	delay  int64
	stages []Stack

	// Splitter state: out[0:priorityOuts] are priority outputs filled in
	// declared order; the rest are the round-robin set. rr is the rotation
	// pointer into the round-robin set, persistent across ticks.
	priorityOuts int
	rr           int

	// Merger state: round-robin merge mode and its rotation pointer.
	// Without rrMerge, inputs are drained in fixed priority order.
	rrMerge bool
	mrr     int

	// Endpoint state. limit is the total supply (source) or demand (sink);
	// -1 means unlimited. emitted/absorbed are lifetime counters.
	itemKind ItemKind
	limit    int64
	emitted  int64
	absorbed int64
}

// ID returns the entity's arena handle.
func (e *Entity) ID() EntityID { return e.id }

// Kind returns the entity's variant.
func (e *Entity) Kind() EntityKind { return e.kind }

// Inputs returns the number of input ports.
func (e *Entity) Inputs() int { return len(e.in) }

// Outputs returns the number of output ports.
func (e *Entity) Outputs() int { return len(e.out) }

// In returns the buffer backing input port i. Callers outside the engine
// must treat it as read-only; mutating it mid-run corrupts the simulation.
func (e *Entity) In(i int) *Buffer { return &e.in[i] }

// Out returns the buffer backing output port i. Read-only for callers
// outside the engine.
func (e *Entity) Out(i int) *Buffer { return &e.out[i] }

// Rate returns the per-tick transfer capacity (0 = unlimited).
func (e *Entity) Rate() int64 { return e.rate }

// Emitted returns the lifetime quantity a source has produced.
func (e *Entity) Emitted() int64 { return e.emitted }

// Absorbed returns the lifetime quantity a sink has consumed.
func (e *Entity) Absorbed() int64 { return e.absorbed }

// Pending returns the total quantity in flight inside a belt's delay FIFO.
func (e *Entity) Pending() int64 {
	var total int64
	for _, s := range e.stages {
		total += s.Count
	}
	return total
}

// held returns all quantity the entity itself stores: port buffers plus any
// in-flight delay stages. Used by conservation accounting.
func (e *Entity) held() int64 {
	var total int64
	for i := range e.in {
		total += e.in[i].count
	}
	for i := range e.out {
		total += e.out[i].count
	}
	return total + e.Pending()
}

func newBelt(id EntityID, bufCap, rate, delay int64) *Entity {
	if rate <= 0 {
		panic(fmt.Sprintf("belt rate must be positive, got %d", rate))
	}
	if delay < 0 {
		panic(fmt.Sprintf("belt delay must be >= 0, got %d", delay))
	}
	return &Entity{
		id:     id,
		kind:   KindBelt,
		in:     []Buffer{NewBuffer(bufCap)},
		out:    []Buffer{NewBuffer(bufCap)},
		rate:   rate,
		delay:  delay,
		stages: make([]Stack, delay),
	}
}

func newSplitter(id EntityID, bufCap int64, priorityOuts, rrOuts int) *Entity {
	if priorityOuts+rrOuts < 1 {
		panic("splitter needs at least one output")
	}
	outs := make([]Buffer, priorityOuts+rrOuts)
	for i := range outs {
		outs[i] = NewBuffer(bufCap)
	}
	return &Entity{
		id:           id,
		kind:         KindSplitter,
		in:           []Buffer{NewBuffer(bufCap)},
		out:          outs,
		priorityOuts: priorityOuts,
	}
}

func newMerger(id EntityID, bufCap int64, inputs int, roundRobin bool) *Entity {
	if inputs < 1 {
		panic("merger needs at least one input")
	}
	ins := make([]Buffer, inputs)
	for i := range ins {
		ins[i] = NewBuffer(bufCap)
	}
	return &Entity{
		id:      id,
		kind:    KindMerger,
		in:      ins,
		out:     []Buffer{NewBuffer(bufCap)},
		rrMerge: roundRobin,
	}
}

func newSource(id EntityID, kind ItemKind, bufCap, rate, limit int64) *Entity {
	if rate <= 0 {
		panic(fmt.Sprintf("source rate must be positive, got %d", rate))
	}
	return &Entity{
		id:       id,
		kind:     KindSource,
		out:      []Buffer{NewBuffer(bufCap)},
		rate:     rate,
		itemKind: kind,
		limit:    limit,
	}
}

func newSink(id EntityID, bufCap, rate, limit int64) *Entity {
	if rate <= 0 {
		panic(fmt.Sprintf("sink rate must be positive, got %d", rate))
	}
	return &Entity{
		id:    id,
		kind:  KindSink,
		in:    []Buffer{NewBuffer(bufCap)},
		rate:  rate,
		limit: limit,
	}
}

// transferResult is the scratch record one evaluation fills in. The engine
// reuses a single instance per tick to avoid per-entity allocation.
type transferResult struct {
	moved    int64   // total quantity the transfer function moved
	changed  bool    // any buffer or internal stage changed
	consumed []int64 // per input port, quantity taken from the in buffer
	// Binding notes for the batch solver: true when the port's buffer
	// occupancy (count for inputs, space for outputs) limited the move.
	inBound  []bool
	outBound []bool
}

func (r *transferResult) reset(e *Entity) {
	r.moved = 0
	r.changed = false
	r.consumed = resizeInt64(r.consumed, len(e.in))
	r.inBound = resizeBool(r.inBound, len(e.in))
	r.outBound = resizeBool(r.outBound, len(e.out))
}

func resizeInt64(s []int64, n int) []int64 {
	if cap(s) < n {
		return make([]int64, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = 0
	}
	return s
}

func resizeBool(s []bool, n int) []bool {
	if cap(s) < n {
		return make([]bool, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = false
	}
	return s
}

// transfer applies the entity's per-tick transfer function: a pure function
// of its own buffers (plus the explicit tick context), writing the outcome
// into res. It never touches another entity's state.
func (e *Entity) transfer(now int64, granularity int64, res *transferResult) {
	res.reset(e)
	switch e.kind {
	case KindBelt:
		e.beltTransfer(res)
	case KindSplitter:
		e.splitterTransfer(granularity, res)
	case KindMerger:
		e.mergerTransfer(res)
	case KindSource:
		e.sourceTransfer(res)
	case KindSink:
		e.sinkTransfer(res)
	default:
		panic(fmt.Sprintf("unhandled entity kind %v at tick %d", e.kind, now))
	}
}
