package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	sim "github.com/logistics-sim/logistics-sim/sim"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const lineScenario = `
name: line
entities:
  - name: quarry
    type: source
    item: 1
    capacity: 20
    rate: 4
  - name: haul
    type: belt
    capacity: 20
    rate: 4
    delay: 2
  - name: depot
    type: sink
    capacity: 20
    rate: 4
edges:
  - from: quarry
    to: haul
  - from: haul
    to: depot
`

func TestLoadScenario_ParsesEntitiesAndEdges(t *testing.T) {
	// GIVEN a scenario file describing a three-entity line
	path := writeScenario(t, lineScenario)

	// WHEN loaded
	spec, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}

	// THEN the parsed spec matches the file
	if spec.Name != "line" {
		t.Errorf("Name = %q, want line", spec.Name)
	}
	if len(spec.Entities) != 3 || len(spec.Edges) != 2 {
		t.Fatalf("got %d entities, %d edges, want 3 and 2", len(spec.Entities), len(spec.Edges))
	}
	if spec.Entities[1].Type != "belt" || spec.Entities[1].Delay != 2 {
		t.Errorf("belt entity parsed as %+v", spec.Entities[1])
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	path := writeScenario(t, "entities: [unterminated")
	if _, err := LoadScenario(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestScenarioBuild_RunsEndToEnd(t *testing.T) {
	// GIVEN a built line scenario
	path := writeScenario(t, lineScenario)
	spec, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	engine, err := spec.Build(sim.EngineConfig{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// WHEN advanced
	report, err := engine.Advance(20)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}

	// THEN items flow from source to sink
	if report.Moved() == 0 {
		t.Error("expected movement through the line")
	}
	sink := engine.Entity(sim.EntityID(2))
	if sink.Absorbed() == 0 {
		t.Error("sink absorbed nothing")
	}
}

func TestScenarioBuild_PortReferences(t *testing.T) {
	// GIVEN a splitter scenario using name:port edge references
	spec := &ScenarioSpec{
		Entities: []EntitySpec{
			{Name: "src", Type: "source", Item: 1, Rate: 6},
			{Name: "split", Type: "splitter", RROutputs: 2},
			{Name: "a", Type: "sink", Rate: 3},
			{Name: "b", Type: "sink", Rate: 3},
		},
		Edges: []EdgeSpec{
			{From: "src", To: "split"},
			{From: "split:0", To: "a"},
			{From: "split:1", To: "b"},
		},
	}

	engine, err := spec.Build(sim.EngineConfig{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := engine.Advance(10); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	// THEN both sinks receive items
	if engine.Entity(sim.EntityID(2)).Absorbed() == 0 || engine.Entity(sim.EntityID(3)).Absorbed() == 0 {
		t.Error("round-robin split did not reach both sinks")
	}
}

func TestScenarioBuild_FiltersApplied(t *testing.T) {
	// GIVEN a merger whose second input only accepts kind 2
	spec := &ScenarioSpec{
		Entities: []EntitySpec{
			{Name: "iron", Type: "source", Item: 1, Rate: 2},
			{Name: "m", Type: "merger", Inputs: 2, Filters: [][]int{nil, {2}}},
			{Name: "out", Type: "sink", Rate: 4},
		},
		Edges: []EdgeSpec{
			{From: "iron", To: "m:1"},
			{From: "m", To: "out"},
		},
	}

	engine, err := spec.Build(sim.EngineConfig{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := engine.Advance(10); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	// THEN the filtered input rejects the mismatched kind
	if got := engine.Entity(sim.EntityID(2)).Absorbed(); got != 0 {
		t.Errorf("sink absorbed %d, want 0 (filter should block kind 1)", got)
	}
}

func TestScenarioBuild_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		spec    ScenarioSpec
		wantErr string
	}{
		{
			name: "unknown type",
			spec: ScenarioSpec{Entities: []EntitySpec{
				{Name: "x", Type: "teleporter"},
			}},
			wantErr: "unknown type",
		},
		{
			name: "duplicate name",
			spec: ScenarioSpec{Entities: []EntitySpec{
				{Name: "x", Type: "sink", Rate: 1},
				{Name: "x", Type: "sink", Rate: 1},
			}},
			wantErr: "duplicate entity name",
		},
		{
			name: "source without item kind",
			spec: ScenarioSpec{Entities: []EntitySpec{
				{Name: "s", Type: "source", Rate: 1},
			}},
			wantErr: "positive item kind",
		},
		{
			name: "edge to unknown entity",
			spec: ScenarioSpec{
				Entities: []EntitySpec{{Name: "s", Type: "source", Item: 1, Rate: 1}},
				Edges:    []EdgeSpec{{From: "s", To: "ghost"}},
			},
			wantErr: "unknown entity",
		},
		{
			name: "bad port syntax",
			spec: ScenarioSpec{
				Entities: []EntitySpec{
					{Name: "s", Type: "source", Item: 1, Rate: 1},
					{Name: "d", Type: "sink", Rate: 1},
				},
				Edges: []EdgeSpec{{From: "s:first", To: "d"}},
			},
			wantErr: "bad port",
		},
		{
			name: "double-bound output",
			spec: ScenarioSpec{
				Entities: []EntitySpec{
					{Name: "s", Type: "source", Item: 1, Rate: 1},
					{Name: "a", Type: "sink", Rate: 1},
					{Name: "b", Type: "sink", Rate: 1},
				},
				Edges: []EdgeSpec{{From: "s", To: "a"}, {From: "s", To: "b"}},
			},
			wantErr: "bound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Build(sim.EngineConfig{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
