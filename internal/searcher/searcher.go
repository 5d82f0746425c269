package searcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vectralab/codelens/internal/embedder"
	"github.com/vectralab/codelens/internal/profiler"
	"github.com/vectralab/codelens/internal/storage"
	"github.com/vectralab/codelens/pkg/types"
)

const (
	defaultLimit = 10
	maxLimit     = 100

	// candidateFactor over-fetches from the store so post-filtering losses
	// don't starve the final page.
	candidateFactor = 2
)

// Request describes one search.
type Request struct {
	Query    string
	Limit    int
	Filters  *Filters
	MinScore float64 // minimum composite score on the final results
}

// Response carries ranked results plus cache metadata.
type Response struct {
	Results     []types.SearchResult `json:"results"`
	Total       int                  `json:"total"`
	Duration    time.Duration        `json:"duration"`
	CacheHit    bool                 `json:"cache_hit"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// copy returns a response the caller may mutate freely.
func (r *Response) copy() *Response {
	dst := *r
	dst.Results = make([]types.SearchResult, len(r.Results))
	copy(dst.Results, r.Results)
	return &dst
}

// Config assembles an Engine.
type Config struct {
	Gateway    storage.Gateway
	Provider   embedder.Provider
	Collection string
	Weights    Weights // zero value selects DefaultWeights
	CacheSize  int
	CacheTTL   time.Duration
	Shared     SharedCache        // optional
	Profiler   *profiler.Profiler // optional
	Logger     *zap.Logger
}

// Engine is the single-project search and ranking engine.
type Engine struct {
	gateway    storage.Gateway
	provider   embedder.Provider
	collection string
	cache      *queryCache
	shared     SharedCache
	prof       *profiler.Profiler
	log        *zap.Logger

	weightsMu sync.RWMutex
	weights   Weights
}

// NewEngine builds an engine bound to one collection.
func NewEngine(cfg Config) *Engine {
	w := cfg.Weights
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		gateway:    cfg.Gateway,
		provider:   cfg.Provider,
		collection: cfg.Collection,
		cache:      newQueryCache(cfg.CacheSize, cfg.CacheTTL),
		shared:     cfg.Shared,
		prof:       cfg.Profiler,
		log:        log,
		weights:    w,
	}
}

// Weights returns the current ranking weights.
func (e *Engine) Weights() Weights {
	e.weightsMu.RLock()
	defer e.weightsMu.RUnlock()
	return e.weights
}

// SetWeights replaces the ranking weights at runtime.
func (e *Engine) SetWeights(w Weights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	e.weightsMu.Lock()
	e.weights = w
	e.weightsMu.Unlock()
	return nil
}

// Search runs the full pipeline: cache lookup, query embedding, candidate
// retrieval, filtering, ranking, dedup, truncation. An unavailable
// embedding fails the request; it is never reported as an empty result set.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if err := normalize(&req); err != nil {
		return nil, err
	}

	span := e.prof.Begin(req.Query)

	if resp, ok := e.fromCache(ctx, req); ok {
		resp.CacheHit = true
		resp.Duration = time.Since(start)
		span.Finish(len(resp.Results), true)
		return resp, nil
	}

	span.StartPhase(profiler.PhaseParse)
	emb, err := e.provider.Embed(ctx, req.Query)
	span.EndPhase()
	if err != nil {
		span.Abandon()
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
	}

	results, err := e.rankCandidates(ctx, span, e.collection, emb.Vector, req)
	if err != nil {
		span.Abandon()
		return nil, err
	}

	resp := &Response{
		Results:     results,
		Total:       len(results),
		Duration:    time.Since(start),
		GeneratedAt: time.Now(),
	}
	e.storeCache(ctx, req, resp)
	span.Finish(len(results), false)
	return resp, nil
}

// SearchWithVector is the per-collection primitive used by workspace
// fan-out: the query embedding is computed once by the caller and reused
// across collections.
func (e *Engine) SearchWithVector(ctx context.Context, collection string, vector []float32, req Request) ([]types.SearchResult, error) {
	if err := normalize(&req); err != nil {
		return nil, err
	}
	return e.rankCandidates(ctx, nil, collection, vector, req)
}

// rankCandidates fetches, filters, scores, dedups, and truncates.
func (e *Engine) rankCandidates(ctx context.Context, span *profiler.Span, collection string, vector []float32, req Request) ([]types.SearchResult, error) {
	span.StartPhase(profiler.PhaseVectorSearch)
	scored, err := e.gateway.Search(ctx, collection, vector, req.Limit*candidateFactor, 0)
	span.EndPhase()
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	span.StartPhase(profiler.PhaseFilter)
	candidates := make([]types.SearchResult, 0, len(scored))
	for _, rec := range scored {
		res := types.SearchResult{
			Path:            rec.Payload.Path,
			Name:            rec.Payload.Name,
			FileType:        rec.Payload.FileType,
			SimilarityScore: rec.Score,
			Size:            rec.Payload.Size,
			Snippet:         rec.Payload.Snippet,
			Author:          rec.Payload.Author,
			ModifiedAt:      rec.Payload.ModifiedAt,
		}
		if req.Filters.Matches(res) {
			candidates = append(candidates, res)
		}
	}
	span.EndPhase()

	span.StartPhase(profiler.PhaseRank)
	weights := e.Weights()
	now := time.Now()
	for i := range candidates {
		keyword := KeywordScore(req.Query, candidates[i].Snippet+" "+candidates[i].Name)
		candidates[i].ConfidenceScore = compositeScore(candidates[i], keyword, weights, now)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ConfidenceScore > candidates[j].ConfidenceScore
	})

	// Dedup by path keeping the highest-scoring occurrence; the slice is
	// already ordered best-first.
	seen := make(map[string]struct{}, len(candidates))
	deduped := candidates[:0]
	for _, res := range candidates {
		if _, dup := seen[res.Path]; dup {
			continue
		}
		if req.MinScore > 0 && res.ConfidenceScore < req.MinScore {
			continue
		}
		seen[res.Path] = struct{}{}
		deduped = append(deduped, res)
	}

	if len(deduped) > req.Limit {
		deduped = deduped[:req.Limit]
	}
	span.EndPhase()

	return deduped, nil
}

// fromCache consults the shared tier first, then the local LRU.
func (e *Engine) fromCache(ctx context.Context, req Request) (*Response, bool) {
	if e.shared != nil {
		resp, ok, err := e.shared.Get(ctx, sharedCacheKey(req))
		if err != nil {
			e.log.Debug("shared cache lookup failed", zap.Error(err))
		} else if ok && time.Since(resp.GeneratedAt) <= e.cache.ttl {
			return resp, true
		}
	}
	return e.cache.get(cacheKey(req))
}

func (e *Engine) storeCache(ctx context.Context, req Request, resp *Response) {
	e.cache.set(cacheKey(req), resp)
	if e.shared != nil {
		if err := e.shared.Set(ctx, sharedCacheKey(req), resp, e.cache.ttl); err != nil {
			e.log.Debug("shared cache store failed", zap.Error(err))
		}
	}
}

// InvalidateCache drops all locally cached responses. Called after bulk
// re-indexing.
func (e *Engine) InvalidateCache() {
	e.cache.purge()
}

// normalize applies defaults and rejects malformed requests.
func normalize(req *Request) error {
	if req.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}
	if req.Limit > maxLimit {
		req.Limit = maxLimit
	}
	return nil
}
