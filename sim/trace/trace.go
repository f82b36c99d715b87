package trace

// TraceLevel controls the verbosity of progress tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelWindows captures fast-forwarded steady windows only.
	TraceLevelWindows TraceLevel = "windows"
	// TraceLevelTicks captures every simulated tick as well as windows.
	TraceLevelTicks TraceLevel = "ticks"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:    true,
	TraceLevelWindows: true,
	TraceLevelTicks:   true,
	"":                true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// Trace collects progress records during an engine run. Its OnTick and
// OnBatchWindow methods match the engine's observer interface, so a Trace
// can be attached directly with SetObserver.
type Trace struct {
	Config  TraceConfig
	TickLog []TickRecord
	Windows []WindowRecord
}

// NewTrace creates a Trace ready for recording.
func NewTrace(config TraceConfig) *Trace {
	return &Trace{
		Config:  config,
		TickLog: make([]TickRecord, 0),
		Windows: make([]WindowRecord, 0),
	}
}

// OnTick appends a tick record at TraceLevelTicks.
func (t *Trace) OnTick(clock int64, evaluated int, moved int64) {
	if t.Config.Level != TraceLevelTicks {
		return
	}
	t.TickLog = append(t.TickLog, TickRecord{Clock: clock, Evaluated: evaluated, Moved: moved})
}

// OnBatchWindow appends a window record unless tracing is disabled.
func (t *Trace) OnBatchWindow(start, ticks int64, stride int) {
	if t.Config.Level == TraceLevelNone || t.Config.Level == "" {
		return
	}
	t.Windows = append(t.Windows, WindowRecord{Start: start, Ticks: ticks, Stride: stride})
}
