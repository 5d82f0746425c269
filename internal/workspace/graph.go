package workspace

import (
	"sort"
	"sync"

	"github.com/vectralab/codelens/pkg/types"
)

// MemoryGraph is an in-memory relationship graph built from directed
// dependency edges. Safe for concurrent reads after construction; AddEdge
// is guarded for configuration reload.
type MemoryGraph struct {
	mu   sync.RWMutex
	deps map[string][]string // project -> direct dependencies
	rdep map[string][]string // project -> direct dependents
}

// NewMemoryGraph creates an empty graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		deps: make(map[string][]string),
		rdep: make(map[string][]string),
	}
}

// AddEdge records "from depends on to".
func (g *MemoryGraph) AddEdge(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deps[from] = append(g.deps[from], to)
	g.rdep[to] = append(g.rdep[to], from)
}

// DependenciesOf implements Graph.
func (g *MemoryGraph) DependenciesOf(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.deps[id]))
	copy(out, g.deps[id])
	return out
}

// DependentsOf implements Graph.
func (g *MemoryGraph) DependentsOf(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.rdep[id]))
	copy(out, g.rdep[id])
	return out
}

// HasEdge implements Graph: true when a depends on b directly.
func (g *MemoryGraph) HasEdge(a, b string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, dep := range g.deps[a] {
		if dep == b {
			return true
		}
	}
	return false
}

// RelatedTo implements Graph: projects whose neighbor-set Jaccard
// similarity with id exceeds threshold, plus direct neighbors.
func (g *MemoryGraph) RelatedTo(id string, threshold float64) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	mine := g.neighborSet(id)
	related := make(map[string]struct{})

	// Direct neighbors always qualify.
	for n := range mine {
		related[n] = struct{}{}
	}

	for other := range g.allNodes() {
		if other == id {
			continue
		}
		if _, already := related[other]; already {
			continue
		}
		if jaccard(mine, g.neighborSet(other)) > threshold {
			related[other] = struct{}{}
		}
	}

	out := make([]string, 0, len(related))
	for id := range related {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// neighborSet is dependencies plus dependents. Caller holds mu.
func (g *MemoryGraph) neighborSet(id string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, d := range g.deps[id] {
		set[d] = struct{}{}
	}
	for _, d := range g.rdep[id] {
		set[d] = struct{}{}
	}
	return set
}

// allNodes is every project mentioned by any edge. Caller holds mu.
func (g *MemoryGraph) allNodes() map[string]struct{} {
	nodes := make(map[string]struct{})
	for id, deps := range g.deps {
		nodes[id] = struct{}{}
		for _, d := range deps {
			nodes[d] = struct{}{}
		}
	}
	return nodes
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// TopoOrder returns the given project IDs sorted so dependencies come
// before dependents. A cycle within the set is a configuration error, not
// something to silently reorder around.
func (g *MemoryGraph) TopoOrder(ids []string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		inSet[id] = struct{}{}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(ids))
	var order []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return types.ErrDependencyCycle
		}
		state[id] = visiting
		for _, dep := range g.deps[id] {
			if _, ok := inSet[dep]; !ok {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}
