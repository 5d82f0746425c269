package workspace

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vectralab/codelens/internal/embedder"
	"github.com/vectralab/codelens/internal/searcher"
	"github.com/vectralab/codelens/pkg/types"
)

// DefaultConcurrency bounds in-flight per-project searches per query.
const DefaultConcurrency = 10

// Cross-project composite score weights. The vector similarity carries full
// weight; the remaining terms are boosts.
const (
	priorityWeight   = 0.3
	relationWeight   = 0.2
	recencyWeight    = 0.1
	exactMatchWeight = 0.5

	// recencyHorizonDays is the linear decay window for the recency boost.
	recencyHorizonDays = 30
)

// Request describes one workspace query.
type Request struct {
	Query           string
	Scope           Scope
	TargetProjectID string
	Limit           int
	Filters         *searcher.Filters
}

// Metrics reports how a workspace query executed.
type Metrics struct {
	ProjectsSearched   int
	ProjectsFailed     int
	ResultsBeforeMerge int
	ResultsAfterMerge  int
	EmbedDuration      time.Duration
	FanoutDuration     time.Duration
	MergeDuration      time.Duration
	TotalDuration      time.Duration
}

// ProjectSearcher is the single-project primitive the fan-out calls once
// per collection with a shared query vector.
type ProjectSearcher interface {
	SearchWithVector(ctx context.Context, collection string, vector []float32, req searcher.Request) ([]types.SearchResult, error)
}

// Searcher executes workspace-aware cross-project searches.
type Searcher struct {
	registry    *Registry
	provider    embedder.Provider
	engine      ProjectSearcher
	concurrency int
	log         *zap.Logger
}

// NewSearcher builds a workspace searcher. concurrency <= 0 selects
// DefaultConcurrency.
func NewSearcher(registry *Registry, provider embedder.Provider, engine ProjectSearcher, concurrency int, log *zap.Logger) *Searcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Searcher{
		registry:    registry,
		provider:    provider,
		engine:      engine,
		concurrency: concurrency,
		log:         log,
	}
}

// projectResults pairs one project's hits with its search context.
type projectResults struct {
	ctx     ProjectSearchContext
	results []types.SearchResult
}

// Search resolves the scope, fans out over the project set with bounded
// concurrency, and merges. One project's failure is logged and excluded; it
// never fails the overall query. Caller cancellation abandons the query:
// in-flight project searches finish but their results are discarded.
func (s *Searcher) Search(ctx context.Context, req Request) ([]types.EnhancedSearchResult, Metrics, error) {
	start := time.Now()
	var metrics Metrics

	if req.Query == "" {
		return nil, metrics, fmt.Errorf("query cannot be empty")
	}
	scope, err := ParseScope(string(req.Scope))
	if err != nil {
		return nil, metrics, err
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	contexts, err := s.registry.ResolveScope(scope, req.TargetProjectID)
	if err != nil {
		return nil, metrics, err
	}
	if len(contexts) == 0 {
		metrics.TotalDuration = time.Since(start)
		return []types.EnhancedSearchResult{}, metrics, nil
	}

	// One embedding for the whole fan-out.
	embedStart := time.Now()
	emb, err := s.provider.Embed(ctx, req.Query)
	if err != nil {
		return nil, metrics, fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
	}
	metrics.EmbedDuration = time.Since(embedStart)

	fanoutStart := time.Now()
	perProject := make([]projectResults, len(contexts))
	var failed sync.Map

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, pctx := range contexts {
		g.Go(func() error {
			results, err := s.engine.SearchWithVector(gctx, pctx.CollectionName, emb.Vector, searcher.Request{
				Query:   req.Query,
				Limit:   req.Limit,
				Filters: req.Filters,
			})
			if err != nil {
				// Excluded, not fatal.
				failed.Store(pctx.ProjectID, err)
				s.log.Warn("project search failed",
					zap.String("project", pctx.ProjectID),
					zap.Error(err))
				return nil
			}
			perProject[i] = projectResults{ctx: pctx, results: results}
			return nil
		})
	}
	// Only context cancellation can surface here.
	if err := g.Wait(); err != nil {
		return nil, metrics, err
	}
	if ctx.Err() != nil {
		return nil, metrics, ctx.Err()
	}
	metrics.FanoutDuration = time.Since(fanoutStart)

	metrics.ProjectsSearched = len(contexts)
	failed.Range(func(_, _ any) bool {
		metrics.ProjectsFailed++
		return true
	})

	mergeStart := time.Now()
	merged := s.merge(req.Query, perProject, req.Limit)
	metrics.MergeDuration = time.Since(mergeStart)
	metrics.ResultsAfterMerge = len(merged)
	for _, pr := range perProject {
		metrics.ResultsBeforeMerge += len(pr.results)
	}
	metrics.TotalDuration = time.Since(start)

	return merged, metrics, nil
}

// merge flattens per-project results, dedups by path keeping the highest
// raw similarity, applies the cross-project composite, sorts, truncates.
func (s *Searcher) merge(query string, perProject []projectResults, limit int) []types.EnhancedSearchResult {
	now := time.Now()

	// Dedup by path first: the winner is the occurrence with the highest
	// raw vector similarity, regardless of project boosts.
	best := make(map[string]types.EnhancedSearchResult)
	for _, pr := range perProject {
		for _, res := range pr.results {
			enhanced := types.EnhancedSearchResult{
				SearchResult:        res,
				ProjectID:           pr.ctx.ProjectID,
				ProjectName:         pr.ctx.ProjectName,
				RelationshipContext: relationshipContext(pr.ctx),
			}
			if prev, ok := best[res.Path]; ok && prev.SimilarityScore >= res.SimilarityScore {
				continue
			}
			best[res.Path] = enhanced
		}
	}

	merged := make([]types.EnhancedSearchResult, 0, len(best))
	for _, res := range best {
		res.FinalScore = s.finalScore(query, res, now)
		merged = append(merged, res)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].FinalScore != merged[j].FinalScore {
			return merged[i].FinalScore > merged[j].FinalScore
		}
		return merged[i].Path < merged[j].Path
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// finalScore is the cross-project composite:
//
//	sim + (priorityMult-1)*0.3 + relBoost*0.2 + recency*0.1 + exactMatch*0.5
func (s *Searcher) finalScore(query string, res types.EnhancedSearchResult, now time.Time) float64 {
	priorityMult := 1.0
	relBoost := 0.0
	if p, ok := s.registry.Project(res.ProjectID); ok {
		priorityMult = p.Priority.Multiplier()
	}
	switch res.RelationshipContext {
	case "target":
		relBoost = 1.0
	case "related":
		relBoost = 0.5
	}

	exactMatch := searcher.KeywordScore(query, res.Snippet+" "+res.Name)

	return res.SimilarityScore*1.0 +
		(priorityMult-1)*priorityWeight +
		relBoost*relationWeight +
		recencyBoost(res.ModifiedAt, now)*recencyWeight +
		exactMatch*exactMatchWeight
}

// recencyBoost decays linearly from 1.0 to 0 over 30 days of age.
func recencyBoost(modifiedAt, now time.Time) float64 {
	if modifiedAt.IsZero() {
		return 0
	}
	ageDays := now.Sub(modifiedAt).Hours() / 24
	if ageDays <= 0 {
		return 1.0
	}
	if ageDays >= recencyHorizonDays {
		return 0
	}
	return 1.0 - ageDays/recencyHorizonDays
}

// relationshipContext names the result's relation to the query target.
func relationshipContext(ctx ProjectSearchContext) string {
	switch {
	case ctx.IsTarget:
		return "target"
	case ctx.RelationshipDistance == 1:
		return "related"
	default:
		return "workspace"
	}
}
