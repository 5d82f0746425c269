// Package workspace implements multi-project semantic search: scope
// resolution against a relationship graph, bounded-concurrency fan-out over
// per-project collections, and cross-project merge, dedup, and re-ranking.
package workspace

import (
	"fmt"
	"sync"

	"github.com/vectralab/codelens/pkg/types"
)

// Scope selects which projects a query runs against.
type Scope string

const (
	// ScopeProject searches only the target project.
	ScopeProject Scope = "project"
	// ScopeDependencies searches the target plus its direct dependencies.
	ScopeDependencies Scope = "dependencies"
	// ScopeWorkspace searches every known project.
	ScopeWorkspace Scope = "workspace"
	// ScopeRelated searches the target plus graph-similar projects.
	ScopeRelated Scope = "related"
)

// ParseScope validates a scope string. Invalid scope is a configuration
// error, rejected at the request boundary.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeProject, ScopeDependencies, ScopeWorkspace, ScopeRelated:
		return Scope(s), nil
	case "":
		return ScopeProject, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrInvalidScope, s)
	}
}

// Graph is the project relationship graph, consumed read-only.
type Graph interface {
	DependenciesOf(id string) []string
	DependentsOf(id string) []string
	RelatedTo(id string, threshold float64) []string
	HasEdge(a, b string) bool
}

// Project declares one searchable project.
type Project struct {
	ID         string
	Name       string
	Collection string
	Priority   types.TaskPriority
}

// ProjectSearchContext is a per-query view of one project in scope.
// Constructed from workspace configuration at query time, never persisted.
type ProjectSearchContext struct {
	ProjectID            string
	ProjectName          string
	CollectionName       string
	Priority             types.TaskPriority
	IsTarget             bool
	RelationshipDistance int // 0 target, 1 direct edge, 2 otherwise
}

// Registry holds the known projects and their relationship graph.
type Registry struct {
	mu       sync.RWMutex
	projects map[string]Project
	order    []string // insertion order for deterministic fan-out
	graph    Graph
}

// NewRegistry builds a registry over the given graph.
func NewRegistry(graph Graph) *Registry {
	return &Registry{
		projects: make(map[string]Project),
		graph:    graph,
	}
}

// AddProject registers a project. Re-adding an ID replaces it.
func (r *Registry) AddProject(p Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.projects[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.projects[p.ID] = p
}

// Project looks up a project by ID.
func (r *Registry) Project(id string) (Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	return p, ok
}

// Projects returns all projects in registration order.
func (r *Registry) Projects() []Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Project, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.projects[id])
	}
	return out
}

// relatedThreshold is the graph-similarity cutoff for ScopeRelated.
const relatedThreshold = 0.5

// ResolveScope expands a scope into the concrete project set for one query.
// Target-relative scopes require a target; a missing or unknown target is a
// configuration error.
func (r *Registry) ResolveScope(scope Scope, targetID string) ([]ProjectSearchContext, error) {
	if scope != ScopeWorkspace {
		if targetID == "" {
			return nil, fmt.Errorf("%w: scope %q requires a target project", types.ErrInvalidScope, scope)
		}
		if _, ok := r.Project(targetID); !ok {
			return nil, fmt.Errorf("%w: unknown target project %q", types.ErrInvalidScope, targetID)
		}
	}

	ids := make([]string, 0)
	switch scope {
	case ScopeProject:
		ids = append(ids, targetID)
	case ScopeDependencies:
		ids = append(ids, targetID)
		ids = append(ids, r.graph.DependenciesOf(targetID)...)
	case ScopeRelated:
		ids = append(ids, targetID)
		ids = append(ids, r.graph.RelatedTo(targetID, relatedThreshold)...)
	case ScopeWorkspace:
		for _, p := range r.Projects() {
			ids = append(ids, p.ID)
		}
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidScope, scope)
	}

	seen := make(map[string]struct{}, len(ids))
	contexts := make([]ProjectSearchContext, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		p, ok := r.Project(id)
		if !ok {
			// Graph edges may reference projects not registered here.
			continue
		}
		contexts = append(contexts, ProjectSearchContext{
			ProjectID:            p.ID,
			ProjectName:          p.Name,
			CollectionName:       p.Collection,
			Priority:             p.Priority,
			IsTarget:             id == targetID,
			RelationshipDistance: r.distance(targetID, id),
		})
	}
	return contexts, nil
}

func (r *Registry) distance(targetID, id string) int {
	switch {
	case targetID == "":
		return 2
	case id == targetID:
		return 0
	case r.graph.HasEdge(targetID, id) || r.graph.HasEdge(id, targetID):
		return 1
	default:
		return 2
	}
}
