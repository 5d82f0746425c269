package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectralab/codelens/internal/config"
)

func embeddingServer(t *testing.T, vector []float32, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 1)

		resp := embeddingResponse{}
		resp.Data = append(resp.Data, struct {
			Embedding []float32 `json:"embedding"`
		}{Embedding: vector})
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProviderEmbed(t *testing.T) {
	srv := embeddingServer(t, []float32{0.1, 0.2, 0.3}, nil)

	p, err := NewHTTPProvider(HTTPConfig{Endpoint: srv.URL, Model: "test-model", Dimension: 3})
	require.NoError(t, err)

	emb, err := p.Embed(context.Background(), "query text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, emb.Vector)
	assert.Equal(t, "http", emb.Provider)
	assert.Equal(t, "test-model", emb.Model)
}

func TestHTTPProviderCacheShortCircuits(t *testing.T) {
	var calls atomic.Int64
	srv := embeddingServer(t, []float32{1, 0, 0}, &calls)

	p, err := NewHTTPProvider(HTTPConfig{Endpoint: srv.URL, Dimension: 3, Cache: NewCache(8)})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.Embed(ctx, "same text")
	require.NoError(t, err)
	_, err = p.Embed(ctx, "same text")
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
}

func TestHTTPProviderDimensionMismatch(t *testing.T) {
	srv := embeddingServer(t, []float32{1, 0}, nil)

	p, err := NewHTTPProvider(HTTPConfig{Endpoint: srv.URL, Dimension: 3})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestHTTPProviderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no model loaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	p, err := NewHTTPProvider(HTTPConfig{Endpoint: srv.URL, Dimension: 3})
	require.NoError(t, err)
	p.retry = RetryConfig{MaxAttempts: 1}

	_, err = p.Embed(context.Background(), "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestNewHTTPProviderValidation(t *testing.T) {
	_, err := NewHTTPProvider(HTTPConfig{Dimension: 3})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	_, err = NewHTTPProvider(HTTPConfig{Endpoint: "http://localhost:9999"})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestFactorySelectsProvider(t *testing.T) {
	p, err := New(config.EmbeddingConfig{Provider: "local", Dimension: 16})
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())

	p, err = New(config.EmbeddingConfig{Provider: "", Dimension: 16})
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())

	p, err = New(config.EmbeddingConfig{Provider: "http", Endpoint: "http://localhost:8080/v1/embeddings", Dimension: 16})
	require.NoError(t, err)
	assert.Equal(t, "http", p.Name())

	_, err = New(config.EmbeddingConfig{Provider: "quantum", Dimension: 16})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}
