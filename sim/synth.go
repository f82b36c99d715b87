// synth.go
//
// Seeded synthetic network generation, used by the bench command and by
// determinism tests. Generation draws only from PartitionedRNG subsystem
// streams, so the same SimulationKey always yields the same network.

package sim

import (
	log "github.com/sirupsen/logrus"
)

// SynthConfig controls synthetic network generation.
type SynthConfig struct {
	Sources   int
	Sinks     int
	Belts     int
	Splitters int
	Mergers   int

	Kinds    int   // distinct item kinds drawn for sources
	BufCap   int64 // buffer capacity for every entity
	MaxRate  int64 // rates drawn uniformly from [1, MaxRate]
	MaxDelay int64 // belt delays drawn uniformly from [0, MaxDelay]
}

func (c SynthConfig) withDefaults() SynthConfig {
	if c.Kinds <= 0 {
		c.Kinds = 1
	}
	if c.BufCap <= 0 {
		c.BufCap = 64
	}
	if c.MaxRate <= 0 {
		c.MaxRate = 8
	}
	if c.MaxDelay < 0 {
		c.MaxDelay = 0
	}
	return c
}

// Synthesize populates a fresh engine with a random network. Every open
// output port is paired with a random open input port until one side runs
// out; leftover ports stay unconnected, which is legal.
func Synthesize(engineCfg EngineConfig, cfg SynthConfig, rng *PartitionedRNG) *Engine {
	cfg = cfg.withDefaults()
	topo := rng.ForSubsystem(SubsystemTopology)
	rates := rng.ForSubsystem(SubsystemRates)

	e := NewEngine(engineCfg)
	drawRate := func() int64 { return 1 + rates.Int63n(cfg.MaxRate) }

	var outs, ins []PortRef
	register := func(id EntityID) {
		ent := e.Entity(id)
		for p := 0; p < ent.Outputs(); p++ {
			outs = append(outs, PortRef{Entity: id, Port: p})
		}
		for p := 0; p < ent.Inputs(); p++ {
			ins = append(ins, PortRef{Entity: id, Port: p})
		}
	}

	for i := 0; i < cfg.Sources; i++ {
		kind := ItemKind(1 + rates.Intn(cfg.Kinds))
		register(e.AddSource(kind, cfg.BufCap, drawRate(), -1))
	}
	for i := 0; i < cfg.Belts; i++ {
		delay := int64(0)
		if cfg.MaxDelay > 0 {
			delay = rates.Int63n(cfg.MaxDelay + 1)
		}
		register(e.AddBelt(cfg.BufCap, drawRate(), delay))
	}
	for i := 0; i < cfg.Splitters; i++ {
		register(e.AddSplitter(cfg.BufCap, 0, 2))
	}
	for i := 0; i < cfg.Mergers; i++ {
		register(e.AddMerger(cfg.BufCap, 2, true))
	}
	for i := 0; i < cfg.Sinks; i++ {
		register(e.AddSink(cfg.BufCap, drawRate(), -1))
	}

	topo.Shuffle(len(outs), func(i, j int) { outs[i], outs[j] = outs[j], outs[i] })
	topo.Shuffle(len(ins), func(i, j int) { ins[i], ins[j] = ins[j], ins[i] })
	edges := len(outs)
	if len(ins) < edges {
		edges = len(ins)
	}
	for i := 0; i < edges; i++ {
		// Entities cannot feed themselves directly.
		if outs[i].Entity == ins[i].Entity {
			continue
		}
		if err := e.Connect(outs[i], ins[i]); err != nil {
			panic("sim: synthetic connect failed: " + err.Error())
		}
	}

	log.Debugf("synth: %d entities, %d edges, key=%v", e.Graph().Len(), edges, rng.Key())
	return e
}
