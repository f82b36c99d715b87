package sim

import "testing"

func tick(e *Entity) *transferResult {
	res := &transferResult{}
	e.transfer(0, 1, res)
	return res
}

func TestBelt_DelayZero_MovesUpToRate(t *testing.T) {
	// GIVEN a direct belt with rate 4 and 10 items waiting
	b := newBelt(1, 50, 4, 0)
	b.in[0].Push(1, 10)

	// WHEN one tick runs
	res := tick(b)

	// THEN exactly the rate moves to the output
	if res.moved != 4 {
		t.Errorf("moved: got %d, want 4", res.moved)
	}
	if b.out[0].Count() != 4 || b.in[0].Count() != 6 {
		t.Errorf("buffers: got out=%d in=%d, want 4 and 6", b.out[0].Count(), b.in[0].Count())
	}
}

func TestBelt_DelayZero_OutputSpaceBinds(t *testing.T) {
	// GIVEN a belt whose output has only 2 free slots
	b := newBelt(1, 10, 4, 0)
	b.in[0].Push(1, 10)
	b.out[0].Push(1, 8)

	// WHEN one tick runs
	res := tick(b)

	// THEN the move clamps to the space and the output is flagged binding
	if res.moved != 2 {
		t.Errorf("moved: got %d, want 2", res.moved)
	}
	if !res.outBound[0] {
		t.Error("outBound[0]: got false, want true")
	}
}

func TestBelt_Delay_ItemEmergesAfterDelayTicks(t *testing.T) {
	// GIVEN a belt with a transport delay of 3 ticks and one item inserted
	b := newBelt(1, 10, 1, 3)
	b.in[0].Push(1, 1)

	// WHEN ticks 0, 1 and 2 run
	for i := 0; i < 3; i++ {
		tick(b)
		// THEN the item has not reached the output yet
		if !b.out[0].IsEmpty() {
			t.Fatalf("item emerged at tick %d, want no earlier than tick 3", i)
		}
	}

	// WHEN tick 3 runs
	tick(b)

	// THEN the item emerges
	if b.out[0].Count() != 1 {
		t.Errorf("output after tick 3: got %d, want 1", b.out[0].Count())
	}
}

func TestBelt_Delay_PreservesOrderAcrossKinds(t *testing.T) {
	// GIVEN a delayed belt fed kind 1 then kind 2
	b := newBelt(1, 10, 2, 2)
	b.in[0].Push(1, 2)
	tick(b) // kind 1 enters the pipeline
	b.in[0].Push(2, 2)
	tick(b) // kind 2 follows

	// WHEN the pipeline drains
	tick(b)
	if b.out[0].Kind() != 1 || b.out[0].Count() != 2 {
		t.Fatalf("first delivery: got kind=%d count=%d, want kind 1 count 2", b.out[0].Kind(), b.out[0].Count())
	}

	// THEN kind 2 is jammed behind the kind-locked output
	res := tick(b)
	if !res.outBound[0] {
		t.Error("outBound[0]: got false, want true while output is kind-locked")
	}
	if b.out[0].Count() != 2 {
		t.Errorf("output: got %d, want 2 (kind 2 must wait)", b.out[0].Count())
	}

	// WHEN the output drains, kind 2 is delivered intact
	b.out[0].Pop(2)
	tick(b)
	if b.out[0].Kind() != 2 || b.out[0].Count() != 2 {
		t.Errorf("second delivery: got kind=%d count=%d, want kind 2 count 2", b.out[0].Kind(), b.out[0].Count())
	}
}

func TestBelt_Delay_JamHoldsPipelineInPlace(t *testing.T) {
	// GIVEN a delayed belt whose output can take only part of a stage
	b := newBelt(1, 10, 4, 1)
	b.in[0].Push(1, 4)
	tick(b) // 4 items enter the stage
	b.out[0].Push(1, 8)

	// WHEN the stage can deposit only 2 of its 4
	res := tick(b)

	// THEN the remainder stays in the stage and no intake happens
	if b.out[0].Count() != 10 {
		t.Errorf("output: got %d, want 10", b.out[0].Count())
	}
	if b.Pending() != 2 {
		t.Errorf("pending: got %d, want 2", b.Pending())
	}
	if !res.outBound[0] {
		t.Error("outBound[0]: got false, want true on jam")
	}
}
