package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	sim "github.com/logistics-sim/logistics-sim/sim"
)

// ScenarioSpec is the YAML description of a network. Entities are named;
// edges reference ports as "name:port".
type ScenarioSpec struct {
	Name     string       `yaml:"name"`
	Entities []EntitySpec `yaml:"entities"`
	Edges    []EdgeSpec   `yaml:"edges"`
}

type EntitySpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // source, sink, belt, splitter, merger
	Capacity int64  `yaml:"capacity"`
	Rate     int64  `yaml:"rate"`

	Item  int    `yaml:"item"`  // item kind emitted (source only)
	Limit *int64 `yaml:"limit"` // emission/absorption cap, omitted = unlimited
	Delay int64  `yaml:"delay"` // transit delay in ticks (belt only)

	PriorityOutputs int  `yaml:"priority_outputs"` // splitter only
	RROutputs       int  `yaml:"rr_outputs"`       // splitter only
	Inputs          int  `yaml:"inputs"`           // merger only
	RoundRobin      bool `yaml:"round_robin"`      // merger only

	Filters [][]int `yaml:"filters"` // accepted kinds per input port, empty = any
}

type EdgeSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

const defaultCapacity = 16

// LoadScenario reads and parses a YAML scenario file.
func LoadScenario(path string) (*ScenarioSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var spec ScenarioSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &spec, nil
}

// Build instantiates the scenario into a fresh engine.
func (s *ScenarioSpec) Build(cfg sim.EngineConfig) (*sim.Engine, error) {
	engine := sim.NewEngine(cfg)
	names := make(map[string]sim.EntityID, len(s.Entities))
	for _, es := range s.Entities {
		if es.Name == "" {
			return nil, fmt.Errorf("entity without a name")
		}
		if _, dup := names[es.Name]; dup {
			return nil, fmt.Errorf("duplicate entity name %q", es.Name)
		}
		capacity := es.Capacity
		if capacity <= 0 {
			capacity = defaultCapacity
		}
		limit := int64(-1)
		if es.Limit != nil {
			limit = *es.Limit
		}
		var id sim.EntityID
		switch es.Type {
		case "source":
			if es.Item <= 0 {
				return nil, fmt.Errorf("source %q needs a positive item kind", es.Name)
			}
			id = engine.AddSource(sim.ItemKind(es.Item), capacity, es.Rate, limit)
		case "sink":
			id = engine.AddSink(capacity, es.Rate, limit)
		case "belt":
			id = engine.AddBelt(capacity, es.Rate, es.Delay)
		case "splitter":
			id = engine.AddSplitter(capacity, es.PriorityOutputs, es.RROutputs)
		case "merger":
			inputs := es.Inputs
			if inputs <= 0 {
				inputs = 2
			}
			id = engine.AddMerger(capacity, inputs, es.RoundRobin)
		default:
			return nil, fmt.Errorf("entity %q has unknown type %q", es.Name, es.Type)
		}
		names[es.Name] = id
		for port, kinds := range es.Filters {
			if len(kinds) == 0 {
				continue
			}
			filter := make([]sim.ItemKind, len(kinds))
			for i, k := range kinds {
				filter[i] = sim.ItemKind(k)
			}
			if err := engine.SetInputFilter(id, port, filter); err != nil {
				return nil, fmt.Errorf("entity %q: %w", es.Name, err)
			}
		}
	}

	for _, edge := range s.Edges {
		from, err := parsePortRef(edge.From, names)
		if err != nil {
			return nil, fmt.Errorf("edge %q -> %q: %w", edge.From, edge.To, err)
		}
		to, err := parsePortRef(edge.To, names)
		if err != nil {
			return nil, fmt.Errorf("edge %q -> %q: %w", edge.From, edge.To, err)
		}
		if err := engine.Connect(from, to); err != nil {
			return nil, fmt.Errorf("edge %q -> %q: %w", edge.From, edge.To, err)
		}
	}
	return engine, nil
}

// parsePortRef resolves "name:port" or a bare "name", which means port 0.
func parsePortRef(ref string, names map[string]sim.EntityID) (sim.PortRef, error) {
	name, portStr, hasPort := strings.Cut(ref, ":")
	id, ok := names[name]
	if !ok {
		return sim.PortRef{}, fmt.Errorf("unknown entity %q", name)
	}
	port := 0
	if hasPort {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return sim.PortRef{}, fmt.Errorf("bad port in %q: %w", ref, err)
		}
		port = p
	}
	return sim.PortRef{Entity: id, Port: port}, nil
}
