package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExporter_OnTick_CountsTicksEvaluationsMoved(t *testing.T) {
	// GIVEN a fresh exporter
	exp := NewExporter()

	// WHEN two ticks are observed
	exp.OnTick(0, 4, 10)
	exp.OnTick(1, 2, 5)

	// THEN the counters reflect both ticks
	if got := testutil.ToFloat64(exp.ticks); got != 2 {
		t.Errorf("stepped ticks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exp.evaluations); got != 6 {
		t.Errorf("evaluations = %v, want 6", got)
	}
	if got := testutil.ToFloat64(exp.moved); got != 15 {
		t.Errorf("moved = %v, want 15", got)
	}
}

func TestExporter_OnBatchWindow_CountsWindowsAndTicks(t *testing.T) {
	// GIVEN a fresh exporter
	exp := NewExporter()

	// WHEN two windows are observed
	exp.OnBatchWindow(10, 40, 2)
	exp.OnBatchWindow(50, 100, 1)

	// THEN window counters reflect both
	if got := testutil.ToFloat64(exp.windows); got != 2 {
		t.Errorf("windows = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exp.batchedTicks); got != 140 {
		t.Errorf("batched ticks = %v, want 140", got)
	}
}

func TestExporter_Handler_ServesRegisteredMetrics(t *testing.T) {
	// GIVEN an exporter with some activity
	exp := NewExporter()
	exp.OnTick(0, 1, 3)
	exp.OnBatchWindow(1, 20, 1)

	// WHEN the handler is scraped
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	// THEN the exposition contains the engine series
	body := rec.Body.String()
	for _, series := range []string{
		"sim_stepped_ticks_total 1",
		"sim_items_moved_total 3",
		"sim_batched_ticks_total 20",
		"sim_batch_windows_total 1",
	} {
		if !strings.Contains(body, series) {
			t.Errorf("exposition missing %q", series)
		}
	}
}

func TestExporter_IsolatedRegistries(t *testing.T) {
	// GIVEN two exporters in one process
	a := NewExporter()
	b := NewExporter()

	// WHEN only one observes activity
	a.OnTick(0, 1, 1)

	// THEN the other stays at zero
	if got := testutil.ToFloat64(b.ticks); got != 0 {
		t.Errorf("second exporter ticks = %v, want 0", got)
	}
}
