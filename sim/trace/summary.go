package trace

// TraceSummary aggregates statistics from a Trace.
type TraceSummary struct {
	SteppedTicks int64
	BatchedTicks int64
	Windows      int
	MeanWindow   float64
	MaxWindow    int64
	TotalMoved   int64
	PeakDirty    int
}

// Summarize computes aggregate statistics from a Trace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *Trace) *TraceSummary {
	summary := &TraceSummary{}
	if t == nil {
		return summary
	}

	summary.SteppedTicks = int64(len(t.TickLog))
	for _, rec := range t.TickLog {
		summary.TotalMoved += rec.Moved
		if rec.Evaluated > summary.PeakDirty {
			summary.PeakDirty = rec.Evaluated
		}
	}

	summary.Windows = len(t.Windows)
	for _, w := range t.Windows {
		summary.BatchedTicks += w.Ticks
		if w.Ticks > summary.MaxWindow {
			summary.MaxWindow = w.Ticks
		}
	}
	if summary.Windows > 0 {
		summary.MeanWindow = float64(summary.BatchedTicks) / float64(summary.Windows)
	}

	return summary
}
