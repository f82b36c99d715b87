// endpoint.go
//
// Sources and sinks are the external producer/consumer boundary. A source
// emits up to its rate per tick into its output buffer; a sink drains up to
// its rate per tick from its input buffer. Both honor an optional lifetime
// limit (-1 = unlimited), and their rates are settable between ticks via the
// engine's supply/demand hooks.

package sim

// sourceTransfer emits one tick's worth of supply.
func (e *Entity) sourceTransfer(res *transferResult) {
	out := &e.out[0]
	budget := e.rate
	if e.limit >= 0 {
		budget = min(budget, e.limit-e.emitted)
	}
	if budget <= 0 {
		return
	}
	if !out.Accepts(e.itemKind) {
		res.outBound[0] = true
		return
	}
	emit := min(budget, out.Space())
	if emit < budget {
		res.outBound[0] = true
	}
	if emit == 0 {
		return
	}
	out.Push(e.itemKind, emit)
	e.emitted += emit
	res.moved += emit
	res.changed = true
}

// sinkTransfer drains one tick's worth of demand.
func (e *Entity) sinkTransfer(res *transferResult) {
	in := &e.in[0]
	budget := e.rate
	if e.limit >= 0 {
		budget = min(budget, e.limit-e.absorbed)
	}
	if budget <= 0 || in.IsEmpty() {
		return
	}
	take := min(budget, in.Count())
	if take < budget {
		res.inBound[0] = true
	}
	in.Pop(take)
	e.absorbed += take
	res.consumed[0] = take
	res.moved += take
	res.changed = true
}
