// belt.go
//
// Belt transfer: moves up to rate quantity per tick from the input buffer to
// the output buffer, preserving item order. Transport delay is modeled as a
// fixed-length FIFO of in-flight stacks; delay 0 transfers directly.

package sim

// beltTransfer advances the belt by one tick.
//
// With delay stages the tick proceeds back to front: the oldest stage
// deposits into the output buffer, the pipeline shifts, and a fresh stack of
// up to rate quantity is taken from the input buffer into the first stage.
// If the output cannot absorb the entire oldest stage, the pipeline jams:
// the partial remainder stays in place and nothing shifts, so ordering is
// never violated.
func (e *Entity) beltTransfer(res *transferResult) {
	in := &e.in[0]
	out := &e.out[0]

	if e.delay == 0 {
		if in.IsEmpty() {
			return
		}
		kind := in.Kind()
		if !out.Accepts(kind) {
			res.outBound[0] = true
			return
		}
		move := min(e.rate, in.Count(), out.Space())
		if move < e.rate {
			res.inBound[0] = in.Count() == move
			res.outBound[0] = out.Space() == move
		}
		if move == 0 {
			return
		}
		stack := in.Pop(move)
		out.Push(stack.Kind, stack.Count)
		res.consumed[0] = move
		res.moved += move
		res.changed = true
		return
	}

	// Deposit the oldest stage.
	last := &e.stages[len(e.stages)-1]
	if !last.IsEmpty() {
		space := int64(0)
		if out.Accepts(last.Kind) {
			space = out.Space()
		}
		deposit := min(last.Count, space)
		if deposit > 0 {
			stack := last.Split(deposit)
			out.Push(stack.Kind, stack.Count)
			res.moved += deposit
			res.changed = true
		}
		if !last.IsEmpty() {
			// Jammed: the remainder blocks the pipeline this tick.
			res.outBound[0] = true
			return
		}
	}

	// Shift the pipeline toward the output.
	for i := len(e.stages) - 1; i > 0; i-- {
		if !e.stages[i-1].IsEmpty() {
			res.changed = true
		}
		e.stages[i] = e.stages[i-1]
	}
	e.stages[0] = Stack{}

	// Intake from the input buffer into the first stage.
	if !in.IsEmpty() {
		take := min(e.rate, in.Count())
		if take < e.rate {
			res.inBound[0] = true
		}
		e.stages[0] = in.Pop(take)
		res.consumed[0] = take
		res.moved += take
		res.changed = true
	}
}
