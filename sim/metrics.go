// metrics.go

package sim

import (
	"fmt"
	"sort"
)

// Metrics aggregates engine-lifetime counters across every Advance call.
// Useful for evaluating solver effectiveness and debugging behavior over
// long runs.
type Metrics struct {
	TotalTicks   int64 // How far the clock has advanced
	SteppedTicks int64 // Ticks simulated one by one
	BatchedTicks int64 // Ticks fast-forwarded by the batch solver
	BatchWindows int64 // Number of distinct steady windows

	Evaluations   int64 // Per-tick entity evaluations performed
	Backpressured int64 // Quantity observed stuck behind full downstream buffers

	MovedByKind map[EntityKind]int64 // Quantities moved, keyed by entity kind
}

// NewMetrics returns zeroed metrics.
func NewMetrics() *Metrics {
	return &Metrics{MovedByKind: make(map[EntityKind]int64)}
}

func (m *Metrics) absorb(r *TickReport, g *Graph) {
	m.TotalTicks += r.Ticks
	m.BatchedTicks += r.BatchedTicks
	m.SteppedTicks += r.Ticks - r.BatchedTicks
	m.BatchWindows += int64(len(r.Windows))
	m.Evaluations += r.Evaluations
	m.Backpressured += r.Backpressured
	for id, moved := range r.EntityMoved {
		if e := g.Entity(id); e != nil {
			m.MovedByKind[e.Kind()] += moved
		}
	}
}

// BatchRatio is the fraction of ticks covered by steady windows.
func (m *Metrics) BatchRatio() float64 {
	if m.TotalTicks == 0 {
		return 0
	}
	return float64(m.BatchedTicks) / float64(m.TotalTicks)
}

// Print displays aggregated metrics at the end of a run.
func (m *Metrics) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Total Ticks     : %d\n", m.TotalTicks)
	fmt.Printf("Stepped Ticks   : %d\n", m.SteppedTicks)
	fmt.Printf("Batched Ticks   : %d (%.1f%% in %d windows)\n",
		m.BatchedTicks, 100*m.BatchRatio(), m.BatchWindows)
	fmt.Printf("Evaluations     : %d\n", m.Evaluations)
	fmt.Printf("Backpressured   : %d\n", m.Backpressured)
	kinds := make([]EntityKind, 0, len(m.MovedByKind))
	for k := range m.MovedByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		fmt.Printf("Moved via %-8s: %d\n", k, m.MovedByKind[k])
	}
}
