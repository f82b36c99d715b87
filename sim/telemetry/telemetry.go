// Package telemetry exports engine progress as Prometheus metrics. The
// Exporter's OnTick and OnBatchWindow methods match the engine's observer
// interface, so it attaches directly with SetObserver.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter maintains a private registry so multiple engines in one process
// never collide on metric names.
type Exporter struct {
	reg *prometheus.Registry

	ticks        prometheus.Counter
	evaluations  prometheus.Counter
	moved        prometheus.Counter
	batchedTicks prometheus.Counter
	windows      prometheus.Counter
	windowSize   prometheus.Histogram
}

// NewExporter creates an Exporter with all metrics registered.
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Exporter{
		reg: reg,
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "sim_stepped_ticks_total",
			Help: "Ticks simulated one by one.",
		}),
		evaluations: factory.NewCounter(prometheus.CounterOpts{
			Name: "sim_entity_evaluations_total",
			Help: "Per-tick entity evaluations performed.",
		}),
		moved: factory.NewCounter(prometheus.CounterOpts{
			Name: "sim_items_moved_total",
			Help: "Quantity moved during normally simulated ticks.",
		}),
		batchedTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "sim_batched_ticks_total",
			Help: "Ticks fast-forwarded by the batch solver.",
		}),
		windows: factory.NewCounter(prometheus.CounterOpts{
			Name: "sim_batch_windows_total",
			Help: "Steady windows fast-forwarded in closed form.",
		}),
		windowSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sim_batch_window_ticks",
			Help:    "Length distribution of fast-forwarded windows.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}),
	}
}

// OnTick records one normally simulated tick.
func (e *Exporter) OnTick(clock int64, evaluated int, moved int64) {
	e.ticks.Inc()
	e.evaluations.Add(float64(evaluated))
	e.moved.Add(float64(moved))
}

// OnBatchWindow records one fast-forwarded steady window.
func (e *Exporter) OnBatchWindow(start, ticks int64, stride int) {
	e.batchedTicks.Add(float64(ticks))
	e.windows.Inc()
	e.windowSize.Observe(float64(ticks))
}

// Handler serves the exporter's registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{})
}
