package sim

import (
	"testing"
)

func synthConfigForTest() SynthConfig {
	return SynthConfig{
		Sources:   3,
		Sinks:     3,
		Belts:     5,
		Splitters: 2,
		Mergers:   2,
		Kinds:     2,
		BufCap:    32,
		MaxRate:   6,
		MaxDelay:  3,
	}
}

func TestSynthesize_EntityCount(t *testing.T) {
	// GIVEN a synth config
	// WHEN a network is generated
	// THEN the graph holds exactly the requested number of entities
	cfg := synthConfigForTest()
	e := Synthesize(EngineConfig{}, cfg, NewPartitionedRNG(NewSimulationKey(7)))

	want := cfg.Sources + cfg.Sinks + cfg.Belts + cfg.Splitters + cfg.Mergers
	if got := e.Graph().Len(); got != want {
		t.Errorf("entity count = %d, want %d", got, want)
	}
}

func TestSynthesize_SameKeySameNetwork(t *testing.T) {
	// GIVEN the same key
	// WHEN two networks are generated and advanced
	// THEN their full simulation state matches tick for tick
	cfg := synthConfigForTest()
	e1 := Synthesize(EngineConfig{}, cfg, NewPartitionedRNG(NewSimulationKey(42)))
	e2 := Synthesize(EngineConfig{}, cfg, NewPartitionedRNG(NewSimulationKey(42)))

	if _, err := e1.Advance(50); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := e2.Advance(50); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if !statesMatch(e1, e2) {
		t.Error("same key produced diverging simulations")
	}
}

func TestSynthesize_DifferentKeysDiverge(t *testing.T) {
	// GIVEN different keys
	// THEN the generated networks almost surely differ after advancing
	cfg := synthConfigForTest()
	e1 := Synthesize(EngineConfig{}, cfg, NewPartitionedRNG(NewSimulationKey(1)))
	e2 := Synthesize(EngineConfig{}, cfg, NewPartitionedRNG(NewSimulationKey(2)))

	if _, err := e1.Advance(50); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := e2.Advance(50); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if statesMatch(e1, e2) {
		t.Error("different keys produced identical simulations")
	}
}

func TestSynthesize_OccupancyWithinCapacity(t *testing.T) {
	// GIVEN a generated network advanced for a while
	// THEN every buffer stays within [0, capacity]
	cfg := synthConfigForTest()
	e := Synthesize(EngineConfig{}, cfg, NewPartitionedRNG(NewSimulationKey(9)))

	if _, err := e.Advance(200); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	for id := EntityID(0); int(id) < e.Graph().Len(); id++ {
		ent := e.Entity(id)
		for i := 0; i < ent.Inputs(); i++ {
			b := ent.In(i)
			if b.Count() < 0 || b.Count() > b.Capacity() {
				t.Errorf("entity %v input %d occupancy %d out of [0,%d]", id, i, b.Count(), b.Capacity())
			}
		}
		for i := 0; i < ent.Outputs(); i++ {
			b := ent.Out(i)
			if b.Count() < 0 || b.Count() > b.Capacity() {
				t.Errorf("entity %v output %d occupancy %d out of [0,%d]", id, i, b.Count(), b.Capacity())
			}
		}
	}
}

func TestSynthConfig_Defaults(t *testing.T) {
	got := SynthConfig{}.withDefaults()
	if got.Kinds != 1 || got.BufCap != 64 || got.MaxRate != 8 || got.MaxDelay != 0 {
		t.Errorf("withDefaults = %+v, want kinds=1 cap=64 rate=8 delay=0", got)
	}
}
