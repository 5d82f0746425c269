package workspace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectralab/codelens/internal/embedder"
	"github.com/vectralab/codelens/internal/searcher"
	"github.com/vectralab/codelens/pkg/types"
)

// fakeProvider returns a fixed vector for any text.
type fakeProvider struct {
	err   error
	calls int
}

func (f *fakeProvider) Embed(ctx context.Context, text string) (*embedder.Embedding, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &embedder.Embedding{Vector: []float32{1, 0, 0}, Dimension: 3}, nil
}
func (f *fakeProvider) Dimension() int { return 3 }
func (f *fakeProvider) Name() string   { return "fake" }
func (f *fakeProvider) Close() error   { return nil }

// fakeEngine maps collection name to canned results or an error.
type fakeEngine struct {
	results map[string][]types.SearchResult
	errs    map[string]error
}

func (f *fakeEngine) SearchWithVector(ctx context.Context, collection string, vector []float32, req searcher.Request) ([]types.SearchResult, error) {
	if err, ok := f.errs[collection]; ok {
		return nil, err
	}
	return f.results[collection], nil
}

func result(path string, sim float64) types.SearchResult {
	return types.SearchResult{
		Path:            path,
		Name:            path,
		FileType:        "go",
		SimilarityScore: sim,
		Snippet:         "package demo",
		ModifiedAt:      time.Now().Add(-time.Hour),
	}
}

func newTestSearcher(t *testing.T, engine ProjectSearcher) *Searcher {
	t.Helper()
	registry, _ := testRegistry(t)
	return NewSearcher(registry, &fakeProvider{}, engine, 4, nil)
}

func TestWorkspaceSearchRejectsEmptyQuery(t *testing.T) {
	s := newTestSearcher(t, &fakeEngine{})
	_, _, err := s.Search(context.Background(), Request{Query: ""})
	require.Error(t, err)
}

func TestWorkspaceSearchRejectsInvalidScope(t *testing.T) {
	s := newTestSearcher(t, &fakeEngine{})
	_, _, err := s.Search(context.Background(), Request{Query: "q", Scope: "galaxy"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidScope)
}

func TestWorkspaceSearchEmbedsOnce(t *testing.T) {
	registry, _ := testRegistry(t)
	provider := &fakeProvider{}
	s := NewSearcher(registry, provider, &fakeEngine{}, 4, nil)

	_, _, err := s.Search(context.Background(), Request{Query: "q", Scope: ScopeWorkspace})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
}

func TestWorkspaceSearchEmbeddingFailure(t *testing.T) {
	registry, _ := testRegistry(t)
	provider := &fakeProvider{err: errors.New("down")}
	s := NewSearcher(registry, provider, &fakeEngine{}, 4, nil)

	_, _, err := s.Search(context.Background(), Request{Query: "q", Scope: ScopeWorkspace})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
}

func TestWorkspaceSearchMergesAcrossProjects(t *testing.T) {
	engine := &fakeEngine{results: map[string][]types.SearchResult{
		"api_code":  {result("api/main.go", 0.9)},
		"core_code": {result("core/lib.go", 0.8)},
		"auth_code": {result("auth/jwt.go", 0.7)},
		"web_code":  {result("web/app.ts", 0.6)},
	}}
	s := newTestSearcher(t, engine)

	results, metrics, err := s.Search(context.Background(), Request{Query: "q", Scope: ScopeWorkspace, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, results, 4)
	assert.Equal(t, 4, metrics.ProjectsSearched)
	assert.Equal(t, 0, metrics.ProjectsFailed)
	assert.Equal(t, 4, metrics.ResultsBeforeMerge)
	assert.Equal(t, 4, metrics.ResultsAfterMerge)
}

func TestWorkspaceSearchDedupKeepsHigherSimilarity(t *testing.T) {
	shared := "shared/util.go"
	engine := &fakeEngine{results: map[string][]types.SearchResult{
		"api_code":  {result(shared, 0.4)},
		"core_code": {result(shared, 0.9)},
	}}
	s := newTestSearcher(t, engine)

	results, _, err := s.Search(context.Background(), Request{Query: "q", Scope: ScopeWorkspace, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, shared, results[0].Path)
	assert.Equal(t, 0.9, results[0].SimilarityScore)
	assert.Equal(t, "core", results[0].ProjectID)
}

func TestWorkspaceSearchProjectFailureIsExcluded(t *testing.T) {
	engine := &fakeEngine{
		results: map[string][]types.SearchResult{
			"api_code": {result("api/main.go", 0.9)},
		},
		errs: map[string]error{
			"core_code": errors.New("collection corrupted"),
		},
	}
	s := newTestSearcher(t, engine)

	results, metrics, err := s.Search(context.Background(), Request{Query: "q", Scope: ScopeWorkspace, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 1, metrics.ProjectsFailed)
}

func TestWorkspaceSearchExactMatchBoost(t *testing.T) {
	// Same similarity everywhere; only one result carries the query token.
	withToken := result("auth/token.go", 0.5)
	withToken.Snippet = "func RefreshToken() error"

	engine := &fakeEngine{results: map[string][]types.SearchResult{
		"core_code": {result("core/misc.go", 0.5)},
		"auth_code": {withToken},
	}}

	graph := NewMemoryGraph()
	registry := NewRegistry(graph)
	registry.AddProject(Project{ID: "core", Collection: "core_code", Priority: types.PriorityNormal})
	registry.AddProject(Project{ID: "auth", Collection: "auth_code", Priority: types.PriorityNormal})
	s := NewSearcher(registry, &fakeProvider{}, engine, 4, nil)

	results, _, err := s.Search(context.Background(), Request{Query: "refreshtoken", Scope: ScopeWorkspace, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "auth/token.go", results[0].Path)
	assert.Greater(t, results[0].FinalScore, results[1].FinalScore)
}

func TestWorkspaceSearchPriorityBoost(t *testing.T) {
	engine := &fakeEngine{results: map[string][]types.SearchResult{
		"api_code": {result("api/a.go", 0.5)}, // critical: ×1.5
		"web_code": {result("web/b.go", 0.5)}, // low: ×0.7
	}}
	s := newTestSearcher(t, engine)

	results, _, err := s.Search(context.Background(), Request{Query: "zzz", Scope: ScopeWorkspace, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "api/a.go", results[0].Path)
}

func TestWorkspaceSearchRelationshipContext(t *testing.T) {
	engine := &fakeEngine{results: map[string][]types.SearchResult{
		"api_code":  {result("api/a.go", 0.5)},
		"core_code": {result("core/b.go", 0.5)},
	}}
	s := newTestSearcher(t, engine)

	results, _, err := s.Search(context.Background(), Request{
		Query: "zzz", Scope: ScopeDependencies, TargetProjectID: "api", Limit: 10,
	})
	require.NoError(t, err)

	byPath := make(map[string]types.EnhancedSearchResult)
	for _, r := range results {
		byPath[r.Path] = r
	}
	assert.Equal(t, "target", byPath["api/a.go"].RelationshipContext)
	assert.Equal(t, "related", byPath["core/b.go"].RelationshipContext)
}

func TestWorkspaceSearchTruncatesToLimit(t *testing.T) {
	engine := &fakeEngine{results: map[string][]types.SearchResult{
		"api_code": {
			result("a.go", 0.9), result("b.go", 0.8), result("c.go", 0.7),
		},
	}}
	s := newTestSearcher(t, engine)

	results, _, err := s.Search(context.Background(), Request{
		Query: "zzz", Scope: ScopeProject, TargetProjectID: "api", Limit: 2,
	})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRecencyBoost(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 0.0, recencyBoost(time.Time{}, now))
	assert.Equal(t, 1.0, recencyBoost(now, now))
	assert.Equal(t, 0.0, recencyBoost(now.Add(-31*24*time.Hour), now))

	mid := recencyBoost(now.Add(-15*24*time.Hour), now)
	assert.InDelta(t, 0.5, mid, 0.01)
}
