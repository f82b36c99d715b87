package sim

// EngineConfig groups engine tuning parameters for NewEngine.
type EngineConfig struct {
	// MaxBatchStride caps the steady-block length the batch solver will
	// probe for. Rotation cycles longer than this are never batched.
	// Zero means the default of 64.
	MaxBatchStride int

	// FairnessGranularity is the quantum, in items, at which round-robin
	// splitters hand out shares. Mergers always merge at unit granularity.
	// Zero means the default of 1.
	FairnessGranularity int64
}

const (
	defaultMaxBatchStride      = 64
	defaultFairnessGranularity = 1
)

func (c EngineConfig) withDefaults() EngineConfig {
	if c.MaxBatchStride <= 0 {
		c.MaxBatchStride = defaultMaxBatchStride
	}
	if c.FairnessGranularity <= 0 {
		c.FairnessGranularity = defaultFairnessGranularity
	}
	return c
}
