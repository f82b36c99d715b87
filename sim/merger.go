// merger.go
//
// Merger transfer: pulls from input ports into the single output. Default
// mode drains inputs in fixed priority order, so lower-priority inputs
// starve exactly when higher-priority inputs alone saturate the output —
// no hidden fairness guarantee. Round-robin merge mode applies the same
// fast-forwarded rotation math as the splitter, in reverse.

package sim

// mergerTransfer advances the merger by one tick.
func (e *Entity) mergerTransfer(res *transferResult) {
	out := &e.out[0]
	space := out.Space()
	if e.rate > 0 {
		space = min(space, e.rate)
	}
	if space <= 0 {
		res.outBound[0] = true
		return
	}

	if e.rrMerge {
		e.mergeRoundRobin(space, res)
	} else {
		e.mergePriority(space, res)
	}
}

func (e *Entity) mergePriority(space int64, res *transferResult) {
	out := &e.out[0]
	for i := range e.in {
		if space <= 0 {
			res.outBound[0] = true
			return
		}
		in := &e.in[i]
		if in.IsEmpty() || !out.Accepts(in.Kind()) {
			continue
		}
		take := min(space, in.Count())
		if take == in.Count() {
			res.inBound[i] = true
		}
		stack := in.Pop(take)
		out.Push(stack.Kind, stack.Count)
		space -= take
		res.consumed[i] = take
		res.moved += take
		res.changed = true
	}
	if space == 0 {
		res.outBound[0] = true
	}
}

// mergeRoundRobin pulls fair shares from the live inputs, rotating the
// persistent pointer across ticks. The output's kind lock decides
// eligibility; an empty output adopts the kind of the first non-empty input
// in rotation order.
func (e *Entity) mergeRoundRobin(space int64, res *transferResult) {
	out := &e.out[0]
	ins := e.in

	kind := out.Kind()
	if out.IsEmpty() {
		found := false
		for i := 0; i < len(ins); i++ {
			idx := (e.mrr + i) % len(ins)
			if !ins[idx].IsEmpty() && out.Accepts(ins[idx].Kind()) {
				kind = ins[idx].Kind()
				found = true
				break
			}
		}
		if !found {
			return
		}
	}

	for space > 0 {
		eligible := 0
		minAvail := int64(0)
		for i := range ins {
			if ins[i].IsEmpty() || ins[i].Kind() != kind {
				continue
			}
			if eligible == 0 || ins[i].Count() < minAvail {
				minAvail = ins[i].Count()
			}
			eligible++
		}
		if eligible == 0 {
			break
		}

		take := min(space, minAvail*int64(eligible))
		if take == 0 {
			break
		}
		per := take / int64(eligible)
		leftover := take % int64(eligible)

		k := int64(0)
		for i := 0; i < len(ins); i++ {
			idx := (e.mrr + i) % len(ins)
			in := &ins[idx]
			if in.IsEmpty() || in.Kind() != kind {
				continue
			}
			u := per
			if k < leftover {
				u++
			}
			if u > 0 {
				stack := in.Pop(u)
				out.Push(stack.Kind, stack.Count)
				res.consumed[idx] += u
				res.moved += u
				res.changed = true
				if in.IsEmpty() {
					res.inBound[idx] = true
				}
			}
			k++
		}
		e.mrr = (e.mrr + int(leftover)) % len(ins)

		space -= take
	}
	if space == 0 {
		res.outBound[0] = true
	}
}
