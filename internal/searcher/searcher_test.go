package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectralab/codelens/internal/embedder"
	"github.com/vectralab/codelens/internal/storage"
	"github.com/vectralab/codelens/pkg/types"
)

// mockProvider implements embedder.Provider for tests.
type mockProvider struct {
	embedFunc func(ctx context.Context, text string) (*embedder.Embedding, error)
	calls     int
}

func (m *mockProvider) Embed(ctx context.Context, text string) (*embedder.Embedding, error) {
	m.calls++
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	vector := make([]float32, 4)
	for i := range vector {
		vector[i] = 0.5
	}
	return &embedder.Embedding{Vector: vector, Dimension: 4, Provider: "mock", Hash: embedder.ComputeHash(text)}, nil
}

func (m *mockProvider) Dimension() int { return 4 }
func (m *mockProvider) Name() string   { return "mock" }
func (m *mockProvider) Close() error   { return nil }

// mockGateway implements storage.Gateway returning canned search hits.
type mockGateway struct {
	hits      []storage.ScoredRecord
	searchErr error
	searches  int
}

func (m *mockGateway) EnsureCollection(ctx context.Context, name string, dim int, autoFix bool) (string, error) {
	return name, nil
}
func (m *mockGateway) Upsert(ctx context.Context, collection string, rec storage.Record) error {
	return nil
}
func (m *mockGateway) UpsertBatch(ctx context.Context, collection string, recs []storage.Record) (storage.BatchResult, error) {
	return storage.BatchResult{Upserted: len(recs)}, nil
}
func (m *mockGateway) Search(ctx context.Context, collection string, vector []float32, limit int, threshold float64) ([]storage.ScoredRecord, error) {
	m.searches++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if limit > len(m.hits) {
		limit = len(m.hits)
	}
	return m.hits[:limit], nil
}
func (m *mockGateway) Delete(ctx context.Context, collection string, path string) error { return nil }
func (m *mockGateway) Count(ctx context.Context, collection string) (int, error) {
	return len(m.hits), nil
}
func (m *mockGateway) Close() error { return nil }

func hit(path string, score float64) storage.ScoredRecord {
	return storage.ScoredRecord{
		ID:    path,
		Score: score,
		Payload: types.VectorPayload{
			Path:       path,
			Name:       path,
			FileType:   "go",
			Size:       8 << 10,
			Snippet:    "package main",
			ModifiedAt: time.Now().Add(-time.Hour),
		},
	}
}

func newTestEngine(gw storage.Gateway, provider embedder.Provider) *Engine {
	return NewEngine(Config{
		Gateway:    gw,
		Provider:   provider,
		Collection: "test",
		CacheSize:  16,
		CacheTTL:   time.Minute,
	})
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	e := newTestEngine(&mockGateway{}, &mockProvider{})
	_, err := e.Search(context.Background(), Request{Query: ""})
	require.Error(t, err)
}

func TestSearchEmbeddingFailureIsNotEmptyResults(t *testing.T) {
	provider := &mockProvider{
		embedFunc: func(ctx context.Context, text string) (*embedder.Embedding, error) {
			return nil, errors.New("provider down")
		},
	}
	e := newTestEngine(&mockGateway{hits: []storage.ScoredRecord{hit("a.go", 0.9)}}, provider)

	resp, err := e.Search(context.Background(), Request{Query: "anything"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
	assert.Nil(t, resp)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	gw := &mockGateway{hits: []storage.ScoredRecord{
		hit("low.go", 0.2),
		hit("high.go", 0.9),
		hit("mid.go", 0.5),
	}}
	e := newTestEngine(gw, &mockProvider{})

	resp, err := e.Search(context.Background(), Request{Query: "anything", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "high.go", resp.Results[0].Path)
	assert.Equal(t, "mid.go", resp.Results[1].Path)
	assert.Equal(t, "low.go", resp.Results[2].Path)
}

func TestSearchDedupsByPathKeepingBest(t *testing.T) {
	gw := &mockGateway{hits: []storage.ScoredRecord{
		hit("dup.go", 0.9),
		hit("dup.go", 0.4),
		hit("other.go", 0.6),
	}}
	e := newTestEngine(gw, &mockProvider{})

	resp, err := e.Search(context.Background(), Request{Query: "anything", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "dup.go", resp.Results[0].Path)
	assert.Greater(t, resp.Results[0].SimilarityScore, 0.5)
}

func TestSearchAppliesMinScore(t *testing.T) {
	gw := &mockGateway{hits: []storage.ScoredRecord{
		hit("good.go", 0.95),
		hit("bad.go", 0.01),
	}}
	e := newTestEngine(gw, &mockProvider{})

	resp, err := e.Search(context.Background(), Request{Query: "anything", Limit: 10, MinScore: 0.5})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "good.go", resp.Results[0].Path)
}

func TestSearchTruncatesToLimit(t *testing.T) {
	hits := make([]storage.ScoredRecord, 0, 20)
	for i := 0; i < 20; i++ {
		hits = append(hits, hit(string(rune('a'+i))+".go", float64(i)/20))
	}
	gw := &mockGateway{hits: hits}
	e := newTestEngine(gw, &mockProvider{})

	resp, err := e.Search(context.Background(), Request{Query: "anything", Limit: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
}

func TestSearchCachesResponses(t *testing.T) {
	provider := &mockProvider{}
	gw := &mockGateway{hits: []storage.ScoredRecord{hit("a.go", 0.8)}}
	e := newTestEngine(gw, provider)

	first, err := e.Search(context.Background(), Request{Query: "cache me", Limit: 5})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := e.Search(context.Background(), Request{Query: "cache me", Limit: 5})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 1, gw.searches)

	// Different limit is a different cache entry.
	third, err := e.Search(context.Background(), Request{Query: "cache me", Limit: 7})
	require.NoError(t, err)
	assert.False(t, third.CacheHit)
}

func TestInvalidateCache(t *testing.T) {
	gw := &mockGateway{hits: []storage.ScoredRecord{hit("a.go", 0.8)}}
	e := newTestEngine(gw, &mockProvider{})

	_, err := e.Search(context.Background(), Request{Query: "q", Limit: 5})
	require.NoError(t, err)

	e.InvalidateCache()

	resp, err := e.Search(context.Background(), Request{Query: "q", Limit: 5})
	require.NoError(t, err)
	assert.False(t, resp.CacheHit)
}

func TestCachedResponseIsACopy(t *testing.T) {
	gw := &mockGateway{hits: []storage.ScoredRecord{hit("a.go", 0.8)}}
	e := newTestEngine(gw, &mockProvider{})

	first, err := e.Search(context.Background(), Request{Query: "q", Limit: 5})
	require.NoError(t, err)
	first.Results[0].Path = "mutated"

	second, err := e.Search(context.Background(), Request{Query: "q", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "a.go", second.Results[0].Path)
}

func TestSetWeights(t *testing.T) {
	e := newTestEngine(&mockGateway{}, &mockProvider{})

	require.Error(t, e.SetWeights(Weights{Similarity: -1}))

	w := Weights{Similarity: 1.0}
	require.NoError(t, e.SetWeights(w))
	assert.Equal(t, w, e.Weights())
}

func TestSearchWithVectorSkipsEmbedding(t *testing.T) {
	provider := &mockProvider{}
	gw := &mockGateway{hits: []storage.ScoredRecord{hit("a.go", 0.8)}}
	e := newTestEngine(gw, provider)

	results, err := e.SearchWithVector(context.Background(), "other", []float32{1, 0, 0, 0}, Request{Query: "q", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 0, provider.calls)
}

func TestSearchVectorStoreFailure(t *testing.T) {
	gw := &mockGateway{searchErr: errors.New("disk gone")}
	e := newTestEngine(gw, &mockProvider{})

	_, err := e.Search(context.Background(), Request{Query: "q"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrEmbeddingUnavailable)
}
