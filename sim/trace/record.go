// Package trace provides progress-trace recording for advance analysis.
// This package has no dependencies on sim/ — it stores pure data types,
// and Trace satisfies the engine's observer interface structurally.
package trace

// TickRecord captures one normally simulated tick.
type TickRecord struct {
	Clock     int64
	Evaluated int
	Moved     int64
}

// WindowRecord captures one fast-forwarded steady window.
type WindowRecord struct {
	Start  int64
	Ticks  int64
	Stride int
}
