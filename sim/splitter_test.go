package sim

import "testing"

func splitterTick(e *Entity, granularity int64) *transferResult {
	res := &transferResult{}
	e.transfer(0, granularity, res)
	return res
}

func TestSplitter_RoundRobin_FairOverFullRotation(t *testing.T) {
	// GIVEN a splitter with 3 round-robin outputs and unconstrained space
	sp := newSplitter(1, 100, 0, 3)

	// WHEN 10 items arrive on each of 3 consecutive ticks
	perTick := make([][3]int64, 3)
	for i := 0; i < 3; i++ {
		sp.in[0].Push(1, 10)
		splitterTick(sp, 1)
		for j := 0; j < 3; j++ {
			perTick[i][j] = sp.out[j].Count()
		}
	}

	// THEN every tick each output received floor(10/3) or ceil(10/3)
	prev := [3]int64{}
	for i, counts := range perTick {
		for j := range counts {
			got := counts[j] - prev[j]
			if got != 3 && got != 4 {
				t.Errorf("tick %d output %d: got %d, want 3 or 4", i, j, got)
			}
		}
		prev = counts
	}

	// AND over the full rotation the split is exactly even
	for j := 0; j < 3; j++ {
		if sp.out[j].Count() != 10 {
			t.Errorf("output %d after 3 ticks: got %d, want 10", j, sp.out[j].Count())
		}
	}
	// AND the pointer returned to its start after three leftover steps
	if sp.rr != 0 {
		t.Errorf("rotation pointer: got %d, want 0", sp.rr)
	}
}

func TestSplitter_RoundRobin_PointerAdvancesByLeftover(t *testing.T) {
	// GIVEN a splitter with 3 round-robin outputs
	sp := newSplitter(1, 100, 0, 3)
	sp.in[0].Push(1, 10)

	// WHEN one tick distributes 10 = 3*3 + 1
	splitterTick(sp, 1)

	// THEN the slot after the pointer got the extra item and the pointer
	// advanced past it
	if sp.out[0].Count() != 4 || sp.out[1].Count() != 3 || sp.out[2].Count() != 3 {
		t.Errorf("outputs: got %d/%d/%d, want 4/3/3",
			sp.out[0].Count(), sp.out[1].Count(), sp.out[2].Count())
	}
	if sp.rr != 1 {
		t.Errorf("rotation pointer: got %d, want 1", sp.rr)
	}
}

func TestSplitter_PriorityOutputsFillFirst(t *testing.T) {
	// GIVEN a splitter with 1 priority output and 2 round-robin outputs
	sp := newSplitter(1, 10, 1, 2)
	sp.in[0].Push(1, 10)

	// WHEN one tick runs with the priority output wide open
	splitterTick(sp, 1)

	// THEN the priority output takes everything
	if sp.out[0].Count() != 10 {
		t.Errorf("priority output: got %d, want 10", sp.out[0].Count())
	}
	if sp.out[1].Count() != 0 || sp.out[2].Count() != 0 {
		t.Errorf("round-robin outputs: got %d/%d, want 0/0",
			sp.out[1].Count(), sp.out[2].Count())
	}
}

func TestSplitter_Backpressure_RemainderStaysInInput(t *testing.T) {
	// GIVEN a splitter whose 2 outputs have 4 free slots each
	sp := newSplitter(1, 10, 0, 2)
	sp.out[0].Push(1, 6)
	sp.out[1].Push(1, 6)
	sp.in[0].Push(1, 10)

	// WHEN one tick runs
	res := splitterTick(sp, 1)

	// THEN only the available 8 move and 2 remain upstream
	if res.moved != 8 {
		t.Errorf("moved: got %d, want 8", res.moved)
	}
	if sp.in[0].Count() != 2 {
		t.Errorf("input remainder: got %d, want 2", sp.in[0].Count())
	}
	if !res.outBound[0] || !res.outBound[1] {
		t.Errorf("outBound: got %v/%v, want true/true", res.outBound[0], res.outBound[1])
	}
}

func TestSplitter_Granularity_SubGranuleWaitsUpstream(t *testing.T) {
	// GIVEN a splitter rotating in granules of 5
	sp := newSplitter(1, 100, 0, 2)
	sp.in[0].Push(1, 7)

	// WHEN one tick runs with granularity 5
	splitterTick(sp, 5)

	// THEN one whole granule went to the pointer slot and the sub-granule
	// remainder waits in the input
	if sp.out[0].Count() != 5 || sp.out[1].Count() != 0 {
		t.Errorf("outputs: got %d/%d, want 5/0", sp.out[0].Count(), sp.out[1].Count())
	}
	if sp.in[0].Count() != 2 {
		t.Errorf("input remainder: got %d, want 2", sp.in[0].Count())
	}
	if sp.rr != 1 {
		t.Errorf("rotation pointer: got %d, want 1", sp.rr)
	}
}

func TestSplitter_RotationCycle(t *testing.T) {
	if got := newSplitter(1, 10, 0, 3).rotationCycle(); got != 3 {
		t.Errorf("splitter cycle: got %d, want 3", got)
	}
	if got := newSplitter(1, 10, 2, 1).rotationCycle(); got != 1 {
		t.Errorf("single rr output cycle: got %d, want 1", got)
	}
	if got := newMerger(1, 10, 4, true).rotationCycle(); got != 4 {
		t.Errorf("round-robin merger cycle: got %d, want 4", got)
	}
	if got := newMerger(1, 10, 4, false).rotationCycle(); got != 1 {
		t.Errorf("priority merger cycle: got %d, want 1", got)
	}
}
