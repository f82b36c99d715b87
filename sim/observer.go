// observer.go

package sim

// Observer receives engine progress callbacks. Arguments are plain builtin
// types so implementations (telemetry exporters, trace sinks) need not
// import this package's internals. All callbacks run synchronously on the
// advancing goroutine; implementations must not call back into the engine.
type Observer interface {
	// OnTick fires after each normally simulated tick with the new clock
	// value, the number of entities evaluated, and the quantity moved.
	OnTick(clock int64, evaluated int, moved int64)

	// OnBatchWindow fires after a steady window is fast-forwarded with the
	// window start clock, its length in ticks, and the block stride.
	OnBatchWindow(start, ticks int64, stride int)
}

// nopObserver is used when no observer is attached.
type nopObserver struct{}

func (nopObserver) OnTick(int64, int, int64)        {}
func (nopObserver) OnBatchWindow(int64, int64, int) {}
