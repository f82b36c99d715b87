// graph.go
//
// Static connectivity graph: an entity arena addressed by integer handles
// plus directed port-to-port edges. The simulation never mutates topology;
// only explicit edit operations do, and those are gated by the engine's
// idle state. Cycles are legal — buffers decouple evaluation, so a cycle
// never requires re-entrant transfer calls within a tick.

package sim

import (
	"fmt"
	"sort"
)

// PortRef names one port of one entity. Output and input ports are separate
// namespaces; an edge always runs from an output PortRef to an input PortRef.
type PortRef struct {
	Entity EntityID
	Port   int
}

func (p PortRef) String() string {
	return fmt.Sprintf("%d:%d", p.Entity, p.Port)
}

// Graph owns the entity arena and the edge maps. Removed slots are recycled
// through a free list so handles stay dense at scale.
type Graph struct {
	entities []*Entity
	free     []EntityID

	// outEdges: source output port -> destination input port.
	// inEdges reverses it for upstream lookups.
	outEdges map[PortRef]PortRef
	inEdges  map[PortRef]PortRef
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		outEdges: make(map[PortRef]PortRef),
		inEdges:  make(map[PortRef]PortRef),
	}
}

// add places an entity into the arena and assigns its handle.
func (g *Graph) add(build func(EntityID) *Entity) *Entity {
	var id EntityID
	if n := len(g.free); n > 0 {
		id = g.free[n-1]
		g.free = g.free[:n-1]
		g.entities[id] = build(id)
	} else {
		id = EntityID(len(g.entities))
		g.entities = append(g.entities, build(id))
	}
	return g.entities[id]
}

// Entity returns the entity for a handle, or nil if the handle is stale.
func (g *Graph) Entity(id EntityID) *Entity {
	if id < 0 || int(id) >= len(g.entities) {
		return nil
	}
	return g.entities[id]
}

// Len returns the number of live entities.
func (g *Graph) Len() int {
	return len(g.entities) - len(g.free)
}

// remove deletes an entity and all its incident edges, returning the
// neighbor entities that were connected to it.
func (g *Graph) remove(id EntityID) ([]EntityID, error) {
	e := g.Entity(id)
	if e == nil {
		return nil, fmt.Errorf("%w: no entity %d", ErrTopologyViolation, id)
	}
	var neighbors []EntityID
	for port := range e.out {
		src := PortRef{Entity: id, Port: port}
		if dst, ok := g.outEdges[src]; ok {
			neighbors = append(neighbors, dst.Entity)
			delete(g.outEdges, src)
			delete(g.inEdges, dst)
		}
	}
	for port := range e.in {
		dst := PortRef{Entity: id, Port: port}
		if src, ok := g.inEdges[dst]; ok {
			neighbors = append(neighbors, src.Entity)
			delete(g.inEdges, dst)
			delete(g.outEdges, src)
		}
	}
	g.entities[id] = nil
	g.free = append(g.free, id)
	return neighbors, nil
}

// connect binds an output port to an input port. Each port carries at most
// one edge; fan-out is modeled with splitter entities, never multi-edges.
func (g *Graph) connect(src, dst PortRef) error {
	se := g.Entity(src.Entity)
	de := g.Entity(dst.Entity)
	if se == nil || de == nil {
		return fmt.Errorf("%w: dangling edge %v -> %v", ErrTopologyViolation, src, dst)
	}
	if src.Port < 0 || src.Port >= len(se.out) {
		return fmt.Errorf("%w: entity %d has no output port %d", ErrTopologyViolation, src.Entity, src.Port)
	}
	if dst.Port < 0 || dst.Port >= len(de.in) {
		return fmt.Errorf("%w: entity %d has no input port %d", ErrTopologyViolation, dst.Entity, dst.Port)
	}
	if _, bound := g.outEdges[src]; bound {
		return fmt.Errorf("%w: output port %v already bound", ErrTopologyViolation, src)
	}
	if _, bound := g.inEdges[dst]; bound {
		return fmt.Errorf("%w: input port %v already bound", ErrTopologyViolation, dst)
	}
	g.outEdges[src] = dst
	g.inEdges[dst] = src
	return nil
}

// disconnect removes the edge leaving the given output port.
func (g *Graph) disconnect(src PortRef) (PortRef, error) {
	dst, ok := g.outEdges[src]
	if !ok {
		return PortRef{}, fmt.Errorf("%w: no edge from %v", ErrTopologyViolation, src)
	}
	delete(g.outEdges, src)
	delete(g.inEdges, dst)
	return dst, nil
}

// Downstream returns the input port fed by the given output port.
func (g *Graph) Downstream(src PortRef) (PortRef, bool) {
	dst, ok := g.outEdges[src]
	return dst, ok
}

// Upstream returns the output port feeding the given input port.
func (g *Graph) Upstream(dst PortRef) (PortRef, bool) {
	src, ok := g.inEdges[dst]
	return src, ok
}

// topoOrder returns every live entity in an upstream-before-downstream
// order where one exists. Back edges of cycles are ignored (Kahn's
// algorithm over the acyclic remainder): order is a drain heuristic, not a
// correctness requirement, because buffers decouple evaluation.
func (g *Graph) topoOrder() []EntityID {
	indegree := make(map[EntityID]int, g.Len())
	adj := make(map[EntityID][]EntityID, g.Len())
	for _, e := range g.entities {
		if e == nil {
			continue
		}
		if _, ok := indegree[e.id]; !ok {
			indegree[e.id] = 0
		}
	}
	for src, dst := range g.outEdges {
		adj[src.Entity] = append(adj[src.Entity], dst.Entity)
		indegree[dst.Entity]++
	}

	// Deterministic seed order: ascending handles.
	var frontier []EntityID
	for id, d := range indegree {
		if d == 0 {
			frontier = append(frontier, id)
		}
	}
	sort.Slice(frontier, func(i, j int) bool { return frontier[i] < frontier[j] })

	order := make([]EntityID, 0, len(indegree))
	seen := make(map[EntityID]bool, len(indegree))
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		order = append(order, id)
		seen[id] = true
		next := adj[id]
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, dst := range next {
			indegree[dst]--
			if indegree[dst] == 0 {
				frontier = append(frontier, dst)
			}
		}
	}

	// Cycle members never reach indegree 0; append them in handle order.
	if len(order) < len(indegree) {
		var rest []EntityID
		for id := range indegree {
			if !seen[id] {
				rest = append(rest, id)
			}
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
		order = append(order, rest...)
	}
	return order
}

// Components partitions live entities into weakly connected components.
// Entities in different components never share a buffer, so a future
// scheduler may evaluate components in parallel within one tick.
func (g *Graph) Components() [][]EntityID {
	neighbors := make(map[EntityID][]EntityID)
	for src, dst := range g.outEdges {
		neighbors[src.Entity] = append(neighbors[src.Entity], dst.Entity)
		neighbors[dst.Entity] = append(neighbors[dst.Entity], src.Entity)
	}
	visited := make(map[EntityID]bool, g.Len())
	var components [][]EntityID
	for _, e := range g.entities {
		if e == nil || visited[e.id] {
			continue
		}
		var comp []EntityID
		stack := []EntityID{e.id}
		visited[e.id] = true
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, id)
			for _, n := range neighbors[id] {
				if !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
		sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
		components = append(components, comp)
	}
	return components
}
