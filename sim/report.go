// report.go

package sim

// BatchWindow records one fast-forwarded steady stretch inside an advance.
type BatchWindow struct {
	// Start is the clock value at the first fast-forwarded tick.
	Start int64
	// Ticks is the window length in ticks.
	Ticks int64
	// Stride is the steady block length the solver locked onto.
	Stride int64
}

// TickReport summarizes one Advance call.
type TickReport struct {
	// From and To bound the advance: clock moved from From to To.
	From int64
	To   int64
	// Ticks is To-From, kept explicit for convenience.
	Ticks int64

	// EntityMoved counts quantities moved per entity across the advance,
	// including fast-forwarded windows.
	EntityMoved map[EntityID]int64

	// Backpressured accumulates, per evaluation, the quantity left waiting
	// in connected output buffers because downstream could not accept it.
	// Fast-forwarded windows contribute their full share.
	Backpressured int64
	// Evaluations counts per-tick entity evaluations actually performed.
	// Quiescent entities and fast-forwarded ticks contribute nothing.
	Evaluations int64

	// Windows lists the steady windows the batch solver fast-forwarded.
	Windows []BatchWindow
	// BatchedTicks is the total tick count covered by Windows.
	BatchedTicks int64
}

// Moved returns the total quantity moved by all entities in the advance.
func (r *TickReport) Moved() int64 {
	var total int64
	for _, m := range r.EntityMoved {
		total += m
	}
	return total
}

func newTickReport(from int64) *TickReport {
	return &TickReport{
		From:        from,
		To:          from,
		EntityMoved: make(map[EntityID]int64),
	}
}

func (r *TickReport) recordWindow(w BatchWindow) {
	r.Windows = append(r.Windows, w)
	r.BatchedTicks += w.Ticks
}
