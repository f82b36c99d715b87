// engine.go
//
// The Engine owns the connectivity graph, the activity tracker, and the
// tick clock, and exposes the two halves of the public API: topology
// editing while idle, and Advance while running. Advance interleaves
// normally simulated ticks with fast-forwarded steady windows found by the
// batch solver (batch.go); both paths produce bit-for-bit identical state.

package sim

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

type engineState uint8

const (
	stateIdle engineState = iota
	stateAdvancing
)

// Engine is a tick-batched flow simulation over belts, splitters, mergers
// and buffered endpoints. Not safe for concurrent use.
type Engine struct {
	cfg     EngineConfig
	graph   *Graph
	tracker *ActivityTracker
	metrics *Metrics
	obs     Observer

	clock int64
	state engineState

	// Reused per tick to avoid per-tick allocation.
	scratch []EntityID
	res     transferResult

	// Non-nil only while the batch solver is probing a trial block.
	collector *probeCollector
}

// NewEngine creates an empty engine with the given tuning parameters.
func NewEngine(cfg EngineConfig) *Engine {
	cfg = cfg.withDefaults()
	log.Debugf("engine: new, maxBatchStride=%d fairnessGranularity=%d",
		cfg.MaxBatchStride, cfg.FairnessGranularity)
	e := &Engine{
		cfg:     cfg,
		graph:   NewGraph(),
		metrics: NewMetrics(),
		obs:     nopObserver{},
	}
	e.tracker = NewActivityTracker(e.graph)
	return e
}

// SetObserver attaches a progress observer. Pass nil to detach.
func (e *Engine) SetObserver(obs Observer) {
	if obs == nil {
		obs = nopObserver{}
	}
	e.obs = obs
}

// Clock returns the current tick count.
func (e *Engine) Clock() int64 { return e.clock }

// Metrics returns the engine-lifetime counters.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Entity returns a handle's entity for read-only inspection, or nil.
func (e *Engine) Entity(id EntityID) *Entity { return e.graph.Entity(id) }

// Graph exposes the connectivity graph for read-only inspection.
func (e *Engine) Graph() *Graph { return e.graph }

// TotalQuantity sums every item held anywhere in the network: input and
// output buffers plus belt stages. Sources and sinks count only what sits
// in their buffers, not their emitted or absorbed tallies.
func (e *Engine) TotalQuantity() int64 {
	var total int64
	for id := EntityID(0); int(id) < len(e.graph.entities); id++ {
		if ent := e.graph.entities[id]; ent != nil {
			total += ent.held()
		}
	}
	return total
}

func (e *Engine) mustIdle() {
	if e.state != stateIdle {
		panic("sim: topology edit during Advance")
	}
}

// born registers a freshly added entity with the activity tracker.
func (e *Engine) born(ent *Entity) EntityID {
	e.tracker.MarkDirty(ent.id, ReasonTopology)
	e.tracker.Invalidate()
	return ent.id
}

// AddBelt adds a belt with the given buffer capacity, per-tick rate and
// transit delay in ticks. Panics if called during Advance.
func (e *Engine) AddBelt(bufCap, rate, delay int64) EntityID {
	e.mustIdle()
	return e.born(e.graph.add(func(id EntityID) *Entity {
		return newBelt(id, bufCap, rate, delay)
	}))
}

// AddSplitter adds a splitter with priorityOuts priority output ports
// followed by rrOuts round-robin output ports.
func (e *Engine) AddSplitter(bufCap int64, priorityOuts, rrOuts int) EntityID {
	e.mustIdle()
	return e.born(e.graph.add(func(id EntityID) *Entity {
		return newSplitter(id, bufCap, priorityOuts, rrOuts)
	}))
}

// AddMerger adds a merger with the given number of input ports. With
// roundRobin false, inputs drain in fixed priority order instead.
func (e *Engine) AddMerger(bufCap int64, inputs int, roundRobin bool) EntityID {
	e.mustIdle()
	return e.born(e.graph.add(func(id EntityID) *Entity {
		return newMerger(id, bufCap, inputs, roundRobin)
	}))
}

// AddSource adds an item source. limit < 0 means unlimited.
func (e *Engine) AddSource(kind ItemKind, bufCap, rate, limit int64) EntityID {
	e.mustIdle()
	return e.born(e.graph.add(func(id EntityID) *Entity {
		return newSource(id, kind, bufCap, rate, limit)
	}))
}

// AddSink adds an item sink. limit < 0 means unlimited.
func (e *Engine) AddSink(bufCap, rate, limit int64) EntityID {
	e.mustIdle()
	return e.born(e.graph.add(func(id EntityID) *Entity {
		return newSink(id, bufCap, rate, limit)
	}))
}

// Connect binds an output port to an input port.
func (e *Engine) Connect(src, dst PortRef) error {
	if e.state != stateIdle {
		return fmt.Errorf("%w: connect during Advance", ErrNotIdle)
	}
	if err := e.graph.connect(src, dst); err != nil {
		return err
	}
	e.tracker.MarkDirty(src.Entity, ReasonTopology)
	e.tracker.MarkDirty(dst.Entity, ReasonTopology)
	e.tracker.Invalidate()
	return nil
}

// Disconnect removes the edge leaving src. Items already held in buffers
// on either side stay where they are.
func (e *Engine) Disconnect(src PortRef) error {
	if e.state != stateIdle {
		return fmt.Errorf("%w: disconnect during Advance", ErrNotIdle)
	}
	dst, err := e.graph.disconnect(src)
	if err != nil {
		return err
	}
	e.tracker.MarkDirty(src.Entity, ReasonTopology)
	e.tracker.MarkDirty(dst.Entity, ReasonTopology)
	e.tracker.Invalidate()
	return nil
}

// Remove deletes an entity together with its incident edges. Its buffered
// items vanish with it; former neighbors are woken for re-evaluation.
func (e *Engine) Remove(id EntityID) error {
	if e.state != stateIdle {
		return fmt.Errorf("%w: remove during Advance", ErrNotIdle)
	}
	neighbors, err := e.graph.remove(id)
	if err != nil {
		return err
	}
	for _, n := range neighbors {
		e.tracker.MarkDirty(n, ReasonTopology)
	}
	e.tracker.Invalidate()
	return nil
}

// SetRate changes an entity's per-tick rate and wakes it.
func (e *Engine) SetRate(id EntityID, rate int64) error {
	if e.state != stateIdle {
		return fmt.Errorf("%w: rate change during Advance", ErrNotIdle)
	}
	ent := e.graph.Entity(id)
	if ent == nil {
		return fmt.Errorf("%w: no entity %d", ErrTopologyViolation, id)
	}
	if rate < 0 {
		return fmt.Errorf("%w: negative rate %d", ErrTopologyViolation, rate)
	}
	ent.rate = rate
	e.tracker.MarkDirty(id, ReasonTopology)
	return nil
}

// SetLimit changes a source's emission limit or a sink's absorption limit.
// limit < 0 means unlimited.
func (e *Engine) SetLimit(id EntityID, limit int64) error {
	if e.state != stateIdle {
		return fmt.Errorf("%w: limit change during Advance", ErrNotIdle)
	}
	ent := e.graph.Entity(id)
	if ent == nil {
		return fmt.Errorf("%w: no entity %d", ErrTopologyViolation, id)
	}
	if ent.kind != KindSource && ent.kind != KindSink {
		return fmt.Errorf("%w: entity %d is a %s, not an endpoint", ErrTopologyViolation, id, ent.kind)
	}
	ent.limit = limit
	e.tracker.MarkDirty(id, ReasonTopology)
	return nil
}

// SetInputFilter restricts which item kinds an input port accepts.
// A nil or empty filter accepts every kind.
func (e *Engine) SetInputFilter(id EntityID, port int, kinds []ItemKind) error {
	if e.state != stateIdle {
		return fmt.Errorf("%w: filter change during Advance", ErrNotIdle)
	}
	ent := e.graph.Entity(id)
	if ent == nil {
		return fmt.Errorf("%w: no entity %d", ErrTopologyViolation, id)
	}
	if port < 0 || port >= len(ent.in) {
		return fmt.Errorf("%w: entity %d has no input port %d", ErrTopologyViolation, id, port)
	}
	ent.in[port].SetFilter(kinds)
	e.tracker.MarkDirty(id, ReasonTopology)
	return nil
}

// Advance simulates k ticks and returns a report of what moved. k must be
// at least 1; otherwise ErrInvalidBatchRequest is returned and no state
// changes. Steady stretches are fast-forwarded in closed form; the final
// state is identical to k single-tick advances.
func (e *Engine) Advance(k int64) (*TickReport, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k=%d", ErrInvalidBatchRequest, k)
	}
	if e.state != stateIdle {
		return nil, fmt.Errorf("%w: reentrant Advance", ErrNotIdle)
	}
	e.state = stateAdvancing
	defer func() { e.state = stateIdle }()

	r := newTickReport(e.clock)
	target := e.clock + k
	for e.clock < target {
		if e.tracker.Quiescent() {
			// Nothing can change until the next topology edit.
			w := BatchWindow{Start: e.clock, Ticks: target - e.clock, Stride: 1}
			e.clock = target
			r.recordWindow(w)
			e.obs.OnBatchWindow(w.Start, w.Ticks, int(w.Stride))
			break
		}
		if !e.tryBatch(target, r) {
			e.step(r)
		}
	}
	r.To = e.clock
	r.Ticks = r.To - r.From
	e.metrics.absorb(r, e.graph)
	log.Debugf("engine: advanced %d..%d, batched=%d evaluations=%d",
		r.From, r.To, r.BatchedTicks, r.Evaluations)
	return r, nil
}

// step simulates exactly one tick: drain the dirty set in topological
// order, evaluate each entity, then flush its connected output ports.
func (e *Engine) step(r *TickReport) {
	e.scratch = e.tracker.Drain(e.scratch[:0], nil)
	var movedTotal int64
	for _, id := range e.scratch {
		ent := e.graph.Entity(id)
		if ent == nil {
			continue
		}
		movedTotal += e.evaluate(ent, r)
	}
	e.clock++
	r.Evaluations += int64(len(e.scratch))
	e.obs.OnTick(e.clock, len(e.scratch), movedTotal)
}

// evaluate runs one entity for one tick and returns the quantity it moved
// internally. Flushing to downstream buffers and all dirty marking happen
// here as well.
func (e *Engine) evaluate(ent *Entity, r *TickReport) int64 {
	res := &e.res
	var preOut []int64
	if e.collector != nil {
		preOut = e.collector.preOutCounts(ent)
	}

	ent.transfer(e.clock, e.cfg.FairnessGranularity, res)

	if e.collector != nil {
		e.collector.afterTransfer(ent, res, preOut)
	}

	// Upstream wakeups: freed input space lets feeders push again.
	for port, qty := range res.consumed {
		if qty <= 0 {
			continue
		}
		if src, ok := e.graph.Upstream(PortRef{Entity: ent.id, Port: port}); ok {
			e.tracker.MarkDirty(src.Entity, ReasonSpaceFreed)
		}
	}

	// Flush output ports along their edges.
	var flushed int64
	for port := range ent.out {
		src := &ent.out[port]
		if src.IsEmpty() {
			continue
		}
		dref, ok := e.graph.Downstream(PortRef{Entity: ent.id, Port: port})
		if !ok {
			continue
		}
		dst := &e.graph.Entity(dref.Entity).in[dref.Port]
		if !dst.Accepts(src.Kind()) {
			continue
		}
		n := src.Count()
		if space := dst.Space(); space < n {
			n = space
		}
		if n <= 0 {
			continue
		}
		st := src.Pop(n)
		if _, err := dst.Push(st.Kind, st.Count); err != nil {
			panic("sim: accepted push failed: " + err.Error())
		}
		flushed += n
		e.tracker.MarkDirty(dref.Entity, ReasonInputArrived)
		if e.collector != nil {
			e.collector.flow(ent.id, port, src.IsEmpty(), dref, n)
		}
	}

	if res.moved > 0 {
		r.EntityMoved[ent.id] += res.moved
	}
	// Anything still sitting in a connected output buffer is quantity the
	// downstream side could not take this tick.
	for port := range ent.out {
		if _, ok := e.graph.Downstream(PortRef{Entity: ent.id, Port: port}); ok {
			r.Backpressured += ent.out[port].Count()
		}
	}

	// An entity that did anything may do more next tick. One that moved
	// nothing and changed nothing goes quiescent until a neighbor wakes it.
	if res.moved > 0 || res.changed || flushed > 0 {
		e.tracker.MarkDirty(ent.id, ReasonInputArrived)
	}
	return res.moved
}
