package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HTTPProvider calls an OpenAI-compatible embeddings endpoint. Requests are
// rate-limited client-side and retried with exponential backoff on transient
// failures.
type HTTPProvider struct {
	endpoint   string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *Cache
	retry      RetryConfig
}

// HTTPConfig configures an HTTPProvider.
type HTTPConfig struct {
	Endpoint          string
	APIKey            string
	Model             string
	Dimension         int
	RequestsPerSecond float64
	Cache             *Cache
}

// NewHTTPProvider creates a provider for an OpenAI-compatible API.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint not set", ErrNoProviderEnabled)
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension not set", ErrNoProviderEnabled)
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	return &HTTPProvider{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), int(math.Ceil(rps))),
		cache:   cfg.Cache,
		retry:   DefaultRetryConfig(),
	}, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed implements Provider.
func (p *HTTPProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if p.cache != nil {
		if emb, ok := p.cache.Get(hash); ok {
			return emb, nil
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vector, err := retryWithBackoff(ctx, p.retry, func() ([]float32, error) {
		return p.request(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(vector) != p.dimension {
		return nil, fmt.Errorf("%w: got %d dimensions, expected %d", ErrProviderFailed, len(vector), p.dimension)
	}

	emb := &Embedding{
		Vector:    vector,
		Dimension: p.dimension,
		Provider:  p.Name(),
		Model:     p.model,
		Hash:      hash,
	}
	if p.cache != nil {
		p.cache.Set(hash, emb)
	}
	return emb, nil
}

func (p *HTTPProvider) request(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Input: []string{text}, Model: p.model})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return parsed.Data[0].Embedding, nil
}

// Dimension implements Provider.
func (p *HTTPProvider) Dimension() int { return p.dimension }

// Name implements Provider.
func (p *HTTPProvider) Name() string { return "http" }

// Close implements Provider.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces deterministic pseudo-embeddings from token hashes.
// It needs no network and no API key. Vectors are stable for identical text,
// which preserves upsert idempotency, but carry no real semantics; suitable
// for development and tests only.
type LocalProvider struct {
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a local hash-based provider.
func NewLocalProvider(dimension int, cache *Cache) *LocalProvider {
	if dimension <= 0 {
		dimension = 384
	}
	return &LocalProvider{dimension: dimension, cache: cache}
}

// Embed implements Provider.
func (p *LocalProvider) Embed(_ context.Context, text string) (*Embedding, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if p.cache != nil {
		if emb, ok := p.cache.Get(hash); ok {
			return emb, nil
		}
	}

	vector := make([]float32, p.dimension)
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()
	for i := range vector {
		seed = seed*6364136223846793005 + 1442695040888963407
		vector[i] = float32(int64(seed>>32)) / float32(math.MaxInt32)
	}

	// L2-normalize so cosine similarity behaves like the real thing.
	var norm float64
	for _, f := range vector {
		norm += float64(f) * float64(f)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= inv
		}
	}

	emb := &Embedding{
		Vector:    vector,
		Dimension: p.dimension,
		Provider:  p.Name(),
		Model:     "token-hash",
		Hash:      hash,
	}
	if p.cache != nil {
		p.cache.Set(hash, emb)
	}
	return emb, nil
}

// Dimension implements Provider.
func (p *LocalProvider) Dimension() int { return p.dimension }

// Name implements Provider.
func (p *LocalProvider) Name() string { return "local" }

// Close implements Provider.
func (p *LocalProvider) Close() error { return nil }
