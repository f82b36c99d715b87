// batch.go
//
// Steady-window batch solver. Advance(K) must not cost K times a single
// tick once flow has settled into a repeating pattern, so the solver
// probes for a steady block and fast-forwards it in closed form.
//
// The block stride S is the least common multiple of every rotation cycle
// in the network (round-robin pointers repeat with period equal to their
// set size), capped by MaxBatchStride. Two trial blocks of S ticks are
// simulated normally; the network is steady when the two blocks produced
// identical per-buffer deltas, identical per-entity totals, identical
// boundary state (belt stages, rotation pointers, dirty set), and no
// buffer whose level clamped a transfer drifted at all. A steady block
// replays exactly as long as every shifted trajectory stays inside
// [0, capacity] and endpoint limits are not reached, which bounds the
// window length N. The closed form then applies N blocks at once:
// counts += N*delta, tallies += N*blockTotal, clock += N*S. The result is
// bit-for-bit identical to stepping the same ticks one by one.

package sim

// bufferKey names one buffer of one entity for solver bookkeeping.
type bufferKey struct {
	id   EntityID
	out  bool
	port int
}

// bufStats accumulates what happened to one buffer during a trial block.
type bufStats struct {
	// delta is the running net change relative to block start; minPrefix
	// and maxPrefix bound its trajectory after every individual pop and
	// push. A trajectory computed from full trial amounts stays inside
	// [0, capacity] exactly when every pop and push replays in full.
	delta     int64
	minPrefix int64
	maxPrefix int64
	// binding is set when this buffer's level or space clamped a min.
	binding bool
	// sawEmpty is set when the buffer was observed empty right after an
	// operation. Emptying releases the kind lock, so such buffers must
	// not drift between blocks.
	sawEmpty bool
}

func (s *bufStats) consume(n int64) {
	s.delta -= n
	if s.delta < s.minPrefix {
		s.minPrefix = s.delta
	}
}

func (s *bufStats) deposit(n int64) {
	s.delta += n
	if s.delta > s.maxPrefix {
		s.maxPrefix = s.delta
	}
}

// probeCollector instruments entity evaluation during a trial block.
type probeCollector struct {
	stats map[bufferKey]*bufStats
}

func newProbeCollector() *probeCollector {
	return &probeCollector{stats: make(map[bufferKey]*bufStats)}
}

func (c *probeCollector) get(k bufferKey) *bufStats {
	s, ok := c.stats[k]
	if !ok {
		s = &bufStats{}
		c.stats[k] = s
	}
	return s
}

// preOutCounts captures output buffer levels before an entity's transfer
// so production into them can be measured afterwards.
func (c *probeCollector) preOutCounts(ent *Entity) []int64 {
	counts := make([]int64, len(ent.out))
	for i := range ent.out {
		counts[i] = ent.out[i].Count()
	}
	return counts
}

func (c *probeCollector) afterTransfer(ent *Entity, res *transferResult, preOut []int64) {
	for i, qty := range res.consumed {
		if qty > 0 {
			st := c.get(bufferKey{ent.id, false, i})
			st.consume(qty)
			if ent.in[i].IsEmpty() {
				st.sawEmpty = true
			}
		}
	}
	for i := range ent.out {
		if produced := ent.out[i].Count() - preOut[i]; produced > 0 {
			c.get(bufferKey{ent.id, true, i}).deposit(produced)
		}
	}
	for i, b := range res.inBound {
		if b {
			c.get(bufferKey{ent.id, false, i}).binding = true
		}
	}
	for i, b := range res.outBound {
		if b {
			c.get(bufferKey{ent.id, true, i}).binding = true
		}
	}
}

// flow records an edge flush from an output buffer into an input buffer.
func (c *probeCollector) flow(srcID EntityID, srcPort int, srcEmpty bool, dst PortRef, n int64) {
	st := c.get(bufferKey{srcID, true, srcPort})
	st.consume(n)
	if srcEmpty {
		st.sawEmpty = true
	}
	c.get(bufferKey{dst.Entity, false, dst.Port}).deposit(n)
}

// entitySnap is one entity's full state at a block boundary.
type entitySnap struct {
	id       EntityID
	in, out  []Stack
	stages   []Stack
	rr, mrr  int
	emitted  int64
	absorbed int64
	moved    int64
}

type solverSnap struct {
	ents          []entitySnap
	dirty         map[EntityID]DirtyReason
	backpressured int64
}

func (e *Engine) snapshot(r *TickReport) solverSnap {
	snap := solverSnap{
		dirty:         make(map[EntityID]DirtyReason, len(e.tracker.dirty)),
		backpressured: r.Backpressured,
	}
	for id, reason := range e.tracker.dirty {
		snap.dirty[id] = reason
	}
	for _, ent := range e.graph.entities {
		if ent == nil {
			continue
		}
		es := entitySnap{
			id:       ent.id,
			rr:       ent.rr,
			mrr:      ent.mrr,
			emitted:  ent.emitted,
			absorbed: ent.absorbed,
			moved:    r.EntityMoved[ent.id],
		}
		es.in = make([]Stack, len(ent.in))
		for i := range ent.in {
			es.in[i] = Stack{Kind: ent.in[i].Kind(), Count: ent.in[i].Count()}
		}
		es.out = make([]Stack, len(ent.out))
		for i := range ent.out {
			es.out[i] = Stack{Kind: ent.out[i].Kind(), Count: ent.out[i].Count()}
		}
		if len(ent.stages) > 0 {
			es.stages = append([]Stack(nil), ent.stages...)
		}
		snap.ents = append(snap.ents, es)
	}
	return snap
}

// stride returns the steady block length: the lcm of every rotation cycle
// in the network. A result above MaxBatchStride disables batching.
func (e *Engine) stride() int64 {
	s := int64(1)
	limit := int64(e.cfg.MaxBatchStride)
	for _, ent := range e.graph.entities {
		if ent == nil {
			continue
		}
		if c := int64(ent.rotationCycle()); c > 1 {
			s = lcm(s, c)
			if s > limit {
				return s
			}
		}
	}
	return s
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int64) int64 {
	return a / gcd(a, b) * b
}

// tryBatch probes for a steady window ending no later than target and
// fast-forwards it. It returns true when it advanced the clock at all,
// including by trial ticks that found no steady window; the caller then
// re-enters its loop.
func (e *Engine) tryBatch(target int64, r *TickReport) bool {
	s := e.stride()
	if s > int64(e.cfg.MaxBatchStride) {
		return false
	}
	// Two trial blocks plus at least one fast-forwarded block must fit.
	if target-e.clock < 3*s {
		return false
	}

	snap0 := e.snapshot(r)
	for i := int64(0); i < s; i++ {
		e.step(r)
	}
	snap1 := e.snapshot(r)

	e.collector = newProbeCollector()
	for i := int64(0); i < s; i++ {
		e.step(r)
	}
	collector := e.collector
	e.collector = nil
	snap2 := e.snapshot(r)

	if !e.steady(snap0, snap1, snap2, collector) {
		return true // trial ticks still advanced the clock
	}

	n := e.windowBlocks(target, s, snap1, snap2, collector)
	if n < 1 {
		return true
	}
	e.applyWindow(n, s, snap1, snap2, r)
	return true
}

// steady reports whether the two trial blocks were identical in effect:
// equal per-buffer deltas, equal boundary state, equal per-entity totals,
// equal dirty sets, and zero drift on every binding buffer. Buffers of
// drift-sensitive entities must not drift either: their transfer amounts
// depend on exact buffer levels, which trajectory margins alone do not
// pin down.
func (e *Engine) steady(s0, s1, s2 solverSnap, c *probeCollector) bool {
	if len(s0.ents) != len(s1.ents) || len(s1.ents) != len(s2.ents) {
		return false
	}
	if len(s1.dirty) != len(s2.dirty) {
		return false
	}
	for id, reason := range s1.dirty {
		if s2.dirty[id] != reason {
			return false
		}
	}
	if s1.backpressured-s0.backpressured != s2.backpressured-s1.backpressured {
		return false
	}
	for i := range s1.ents {
		a, b, z := &s0.ents[i], &s1.ents[i], &s2.ents[i]
		if a.id != b.id || b.id != z.id {
			return false
		}
		if b.rr != z.rr || b.mrr != z.mrr {
			return false
		}
		if b.emitted-a.emitted != z.emitted-b.emitted {
			return false
		}
		if b.absorbed-a.absorbed != z.absorbed-b.absorbed {
			return false
		}
		if b.moved-a.moved != z.moved-b.moved {
			return false
		}
		for j := range b.in {
			if b.in[j].Count-a.in[j].Count != z.in[j].Count-b.in[j].Count {
				return false
			}
			if b.in[j].Kind != z.in[j].Kind {
				return false
			}
		}
		for j := range b.out {
			if b.out[j].Count-a.out[j].Count != z.out[j].Count-b.out[j].Count {
				return false
			}
			if b.out[j].Kind != z.out[j].Kind {
				return false
			}
		}
		if len(b.stages) != len(z.stages) {
			return false
		}
		for j := range b.stages {
			if b.stages[j] != z.stages[j] {
				return false
			}
		}
	}
	for i := range s1.ents {
		ent := e.graph.Entity(s1.ents[i].id)
		if ent == nil || !e.driftSensitive(ent) {
			continue
		}
		for j := range s1.ents[i].in {
			if s2.ents[i].in[j].Count != s1.ents[i].in[j].Count {
				return false
			}
		}
		for j := range s1.ents[i].out {
			if s2.ents[i].out[j].Count != s1.ents[i].out[j].Count {
				return false
			}
		}
	}
	// A buffer whose level clamped a transfer, or whose kind lock was
	// released mid-block, must not drift: the clamp amount or the lock
	// transition would change from block to block.
	for key, st := range c.stats {
		if !st.binding && !st.sawEmpty {
			continue
		}
		before, ok1 := s1.find(key)
		after, ok2 := s2.find(key)
		if !ok1 || !ok2 || after.Count != before.Count {
			return false
		}
	}
	return true
}

// driftSensitive reports whether an entity's transfer amounts depend on
// exact buffer levels rather than only on min-clamps. Rotating entities
// qualify: their share math depends on which ports are live. So do
// granule-quantized splitters: the sub-granule remainder left in the input
// buffer is a function of the level modulo the granule size, and crossing
// a granule boundary changes the amount handed out without raising any
// binding flag.
func (e *Engine) driftSensitive(ent *Entity) bool {
	if ent.rotationCycle() > 1 {
		return true
	}
	return e.cfg.FairnessGranularity > 1 &&
		ent.kind == KindSplitter && len(ent.out) > ent.priorityOuts
}

// find locates one buffer's snapshot by key.
func (s *solverSnap) find(key bufferKey) (Stack, bool) {
	for i := range s.ents {
		if s.ents[i].id != key.id {
			continue
		}
		bufs := s.ents[i].in
		if key.out {
			bufs = s.ents[i].out
		}
		if key.port < 0 || key.port >= len(bufs) {
			return Stack{}, false
		}
		return bufs[key.port], true
	}
	return Stack{}, false
}

// windowBlocks bounds how many steady blocks can be applied in closed
// form: shifted buffer trajectories must stay inside [0, capacity],
// endpoint limits must not be crossed, and the advance target must not
// be overshot.
func (e *Engine) windowBlocks(target, s int64, s1, s2 solverSnap, c *probeCollector) int64 {
	n := (target - e.clock) / s
	bound := func(key bufferKey, start, capacity, delta int64) {
		st, ok := c.stats[key]
		if !ok {
			return // untouched during the block, cannot drift
		}
		if start+st.minPrefix < 0 || start+st.maxPrefix > capacity {
			n = 0
			return
		}
		switch {
		case delta < 0:
			if limit := (start+st.minPrefix)/(-delta) + 1; limit < n {
				n = limit
			}
		case delta > 0:
			if limit := (capacity-st.maxPrefix-start)/delta + 1; limit < n {
				n = limit
			}
		}
	}
	for i := range s2.ents {
		ent := e.graph.Entity(s2.ents[i].id)
		if ent == nil {
			return 0
		}
		for j := range s2.ents[i].in {
			delta := s2.ents[i].in[j].Count - s1.ents[i].in[j].Count
			bound(bufferKey{ent.id, false, j}, s2.ents[i].in[j].Count, ent.in[j].Capacity(), delta)
		}
		for j := range s2.ents[i].out {
			delta := s2.ents[i].out[j].Count - s1.ents[i].out[j].Count
			bound(bufferKey{ent.id, true, j}, s2.ents[i].out[j].Count, ent.out[j].Capacity(), delta)
		}
		if ent.limit >= 0 {
			if d := s2.ents[i].emitted - s1.ents[i].emitted; d > 0 {
				if limit := (ent.limit - s2.ents[i].emitted) / d; limit < n {
					n = limit
				}
			}
			if d := s2.ents[i].absorbed - s1.ents[i].absorbed; d > 0 {
				if limit := (ent.limit - s2.ents[i].absorbed) / d; limit < n {
					n = limit
				}
			}
		}
		if n < 1 {
			return 0
		}
	}
	return n
}

// applyWindow fast-forwards n steady blocks of stride s in closed form.
func (e *Engine) applyWindow(n, s int64, s1, s2 solverSnap, r *TickReport) {
	start := e.clock
	for i := range s2.ents {
		ent := e.graph.Entity(s2.ents[i].id)
		for j := range s2.ents[i].in {
			if delta := s2.ents[i].in[j].Count - s1.ents[i].in[j].Count; delta != 0 {
				ent.in[j].count += n * delta
				ent.in[j].check()
			}
		}
		for j := range s2.ents[i].out {
			if delta := s2.ents[i].out[j].Count - s1.ents[i].out[j].Count; delta != 0 {
				ent.out[j].count += n * delta
				ent.out[j].check()
			}
		}
		if d := s2.ents[i].emitted - s1.ents[i].emitted; d != 0 {
			ent.emitted += n * d
		}
		if d := s2.ents[i].absorbed - s1.ents[i].absorbed; d != 0 {
			ent.absorbed += n * d
		}
		if d := s2.ents[i].moved - s1.ents[i].moved; d != 0 {
			r.EntityMoved[ent.id] += n * d
		}
	}
	if d := s2.backpressured - s1.backpressured; d != 0 {
		r.Backpressured += n * d
	}
	e.clock += n * s
	w := BatchWindow{Start: start, Ticks: n * s, Stride: s}
	r.recordWindow(w)
	e.obs.OnBatchWindow(w.Start, w.Ticks, int(s))
}
