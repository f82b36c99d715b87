// splitter.go
//
// Splitter distribution: priority outputs are filled in declared order,
// then the remainder is divided over the round-robin set. Round-robin is
// fast-forwarded rather than simulated item by item: a full rotation hands
// every live output the same amount, so only the final partial rotation
// needs the pointer, and the pointer carries across ticks so fairness holds
// over long runs, not just within one tick.

package sim

// splitterTransfer drains the input buffer into the outputs for one tick.
//
// granularity is the quantity assigned per rotation step (the fairness
// knob): 1 reproduces unit round-robin exactly; larger values trade
// intra-batch fairness for fewer rotation steps, and quantities smaller
// than one granule wait upstream.
//
// If total available output space is smaller than the offered quantity the
// splitter backpressures: the remainder stays in the input buffer and
// upstream fullness propagates from there. Nothing is ever discarded.
func (e *Entity) splitterTransfer(granularity int64, res *transferResult) {
	in := &e.in[0]
	if in.IsEmpty() {
		return
	}
	kind := in.Kind()
	budget := in.Count()
	if e.rate > 0 {
		budget = min(budget, e.rate)
	}
	offered := budget

	// Priority outputs first, greedily in declared order.
	for i := 0; i < e.priorityOuts && budget > 0; i++ {
		out := &e.out[i]
		if !out.Accepts(kind) {
			res.outBound[i] = true
			continue
		}
		give := min(budget, out.Space())
		if out.Space() < budget {
			res.outBound[i] = true
		}
		if give > 0 {
			out.Push(kind, give)
			budget -= give
		}
	}

	budget -= e.distributeRoundRobin(kind, budget, granularity, res)

	given := offered - budget
	if given > 0 {
		in.Pop(given)
		res.consumed[0] = given
		res.moved += given
		res.changed = true
	}
	// The input bound the flow when it was drained below the rate cap.
	res.inBound[0] = in.IsEmpty()
}

// distributeRoundRobin divides budget over the round-robin output set in
// granule units, returning the quantity placed. The rotation pointer
// advances by the leftover of the final partial rotation, exactly as if the
// granules had been offered one at a time.
func (e *Entity) distributeRoundRobin(kind ItemKind, budget, granularity int64, res *transferResult) int64 {
	rrOuts := e.out[e.priorityOuts:]
	if len(rrOuts) == 0 || budget <= 0 {
		return 0
	}
	units := budget / granularity
	var given int64

	for units > 0 {
		// A rotation can only hand out what the tightest live output
		// accepts, so recompute the live set each pass.
		eligible := 0
		minUnits := int64(0)
		for i := range rrOuts {
			if !rrOuts[i].Accepts(kind) {
				continue
			}
			u := rrOuts[i].Space() / granularity
			if u == 0 {
				continue
			}
			if eligible == 0 || u < minUnits {
				minUnits = u
			}
			eligible++
		}
		if eligible == 0 {
			for i := range rrOuts {
				res.outBound[e.priorityOuts+i] = true
			}
			break
		}

		round := min(units, minUnits*int64(eligible))
		per := round / int64(eligible)
		leftover := round % int64(eligible)

		k := int64(0)
		for i := 0; i < len(rrOuts); i++ {
			idx := (e.rr + i) % len(rrOuts)
			out := &rrOuts[idx]
			if !out.Accepts(kind) || out.Space() < granularity {
				continue
			}
			u := per
			if k < leftover {
				u++
			}
			if u > 0 {
				out.Push(kind, u*granularity)
			}
			k++
		}
		e.rr = (e.rr + int(leftover)) % len(rrOuts)

		units -= round
		given += round * granularity
	}

	return given
}

// rotationCycle returns the number of ticks after which the splitter's
// rotation pointer provably returns to its starting slot under any constant
// per-tick flow. The pointer advances by (flow mod M) slots per tick, so M
// ticks always complete a whole number of rotations.
func (e *Entity) rotationCycle() int64 {
	switch e.kind {
	case KindSplitter:
		if n := len(e.out) - e.priorityOuts; n > 1 {
			return int64(n)
		}
	case KindMerger:
		if e.rrMerge && len(e.in) > 1 {
			return int64(len(e.in))
		}
	}
	return 1
}
