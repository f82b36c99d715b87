package cmd

import (
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/logistics-sim/logistics-sim/sim"
	"github.com/logistics-sim/logistics-sim/sim/telemetry"
	"github.com/logistics-sim/logistics-sim/sim/trace"
)

var (
	// CLI flags shared by run and bench
	horizon     int64  // Total ticks to advance
	logLevel    string // Log verbosity level
	batchStride int    // Max steady-block stride probed by the batch solver
	granularity int64  // Round-robin fairness granularity in items
	metricsAddr string // Address for the Prometheus endpoint ("" = disabled)
	traceLevel  string // Progress trace level (none, windows, ticks)

	// CLI flags for the run scenario
	scenarioPath string // Path to the YAML scenario file

	// CLI flags for synthetic bench networks
	seed           int64 // Seed for synthetic network generation
	benchSources   int   // Number of sources
	benchSinks     int   // Number of sinks
	benchBelts     int   // Number of belts
	benchSplitters int   // Number of splitters
	benchMergers   int   // Number of mergers
	benchKinds     int   // Number of distinct item kinds
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "logistics-sim",
	Short: "Tick-batched flow simulator for belt logistics networks",
}

// setup applies the shared flags and returns the optional trace and
// Prometheus exporter, each nil when not enabled.
func setup() (*trace.Trace, *telemetry.Exporter) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)

	if !trace.IsValidTraceLevel(traceLevel) {
		logrus.Fatalf("Invalid trace level: %s", traceLevel)
	}

	var tr *trace.Trace
	if lvl := trace.TraceLevel(traceLevel); lvl != trace.TraceLevelNone && lvl != "" {
		tr = trace.NewTrace(trace.TraceConfig{Level: lvl})
	}

	var exporter *telemetry.Exporter
	if metricsAddr != "" {
		exporter = telemetry.NewExporter()
		mux := http.NewServeMux()
		mux.Handle("/metrics", exporter.Handler())
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logrus.Errorf("metrics endpoint failed: %v", err)
			}
		}()
		logrus.Infof("Serving Prometheus metrics on %s/metrics", metricsAddr)
	}
	return tr, exporter
}

// fanout dispatches observer callbacks to every attached sink.
type fanout []interface {
	OnTick(int64, int, int64)
	OnBatchWindow(int64, int64, int)
}

func (f fanout) OnTick(clock int64, evaluated int, moved int64) {
	for _, o := range f {
		o.OnTick(clock, evaluated, moved)
	}
}

func (f fanout) OnBatchWindow(start, ticks int64, stride int) {
	for _, o := range f {
		o.OnBatchWindow(start, ticks, stride)
	}
}

func attach(e *sim.Engine, tr *trace.Trace, exporter *telemetry.Exporter) {
	var sinks fanout
	if tr != nil {
		sinks = append(sinks, tr)
	}
	if exporter != nil {
		sinks = append(sinks, exporter)
	}
	switch len(sinks) {
	case 0:
	case 1:
		e.SetObserver(sinks[0])
	default:
		e.SetObserver(sinks)
	}
}

func finish(e *sim.Engine, tr *trace.Trace, report *sim.TickReport, elapsed time.Duration) {
	e.Metrics().Print()
	logrus.Infof("Advanced %d ticks (%d batched) in %v, %d items moved",
		report.Ticks, report.BatchedTicks, elapsed, report.Moved())
	if tr != nil {
		s := trace.Summarize(tr)
		logrus.Infof("Trace: %d windows, mean window %.1f ticks, max %d",
			s.Windows, s.MeanWindow, s.MaxWindow)
	}
}

// runCmd executes a YAML scenario for the configured horizon
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario file",
	Run: func(cmd *cobra.Command, args []string) {
		tr, exporter := setup()

		if scenarioPath == "" {
			logrus.Fatal("No scenario file provided. Exiting.")
		}
		spec, err := LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("Unable to load scenario: %v", err)
		}
		engine, err := spec.Build(sim.EngineConfig{
			MaxBatchStride:      batchStride,
			FairnessGranularity: granularity,
		})
		if err != nil {
			logrus.Fatalf("Unable to build scenario %q: %v", spec.Name, err)
		}
		attach(engine, tr, exporter)

		logrus.Infof("Starting scenario %q: %d entities, horizon=%d ticks",
			spec.Name, engine.Graph().Len(), horizon)
		startTime := time.Now()
		report, err := engine.Advance(horizon)
		if err != nil {
			logrus.Fatalf("Advance failed: %v", err)
		}
		finish(engine, tr, report, time.Since(startTime))
	},
}

// benchCmd advances a seeded synthetic network, mainly for profiling the
// batch solver against the single-tick path
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a seeded synthetic network",
	Run: func(cmd *cobra.Command, args []string) {
		tr, exporter := setup()

		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
		engine := sim.Synthesize(
			sim.EngineConfig{MaxBatchStride: batchStride, FairnessGranularity: granularity},
			sim.SynthConfig{
				Sources:   benchSources,
				Sinks:     benchSinks,
				Belts:     benchBelts,
				Splitters: benchSplitters,
				Mergers:   benchMergers,
				Kinds:     benchKinds,
			},
			rng,
		)
		attach(engine, tr, exporter)

		logrus.Infof("Starting bench: %d entities, seed=%d, horizon=%d ticks",
			engine.Graph().Len(), seed, horizon)
		startTime := time.Now()
		report, err := engine.Advance(horizon)
		if err != nil {
			logrus.Fatalf("Advance failed: %v", err)
		}
		finish(engine, tr, report, time.Since(startTime))
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, benchCmd} {
		c.Flags().Int64Var(&horizon, "horizon", 1000000, "Total ticks to advance")
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().IntVar(&batchStride, "max-batch-stride", 64, "Max steady-block stride for the batch solver (0 = default)")
		c.Flags().Int64Var(&granularity, "fairness-granularity", 1, "Splitter round-robin granularity in items")
		c.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
		c.Flags().StringVar(&traceLevel, "trace", "none", "Progress trace level (none, windows, ticks)")
	}

	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to YAML scenario file")

	benchCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for synthetic network generation")
	benchCmd.Flags().IntVar(&benchSources, "sources", 8, "Number of sources")
	benchCmd.Flags().IntVar(&benchSinks, "sinks", 8, "Number of sinks")
	benchCmd.Flags().IntVar(&benchBelts, "belts", 64, "Number of belts")
	benchCmd.Flags().IntVar(&benchSplitters, "splitters", 16, "Number of splitters")
	benchCmd.Flags().IntVar(&benchMergers, "mergers", 16, "Number of mergers")
	benchCmd.Flags().IntVar(&benchKinds, "kinds", 3, "Number of distinct item kinds")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchCmd)
}
