package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors.
var (
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding is a vector with provenance metadata.
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // content hash, used as the cache key
}

// Provider generates embeddings for text.
type Provider interface {
	// Embed generates an embedding for the given text. A nil embedding is
	// never returned with a nil error.
	Embed(ctx context.Context, text string) (*Embedding, error)

	// Dimension returns the vector dimension this provider produces.
	Dimension() int

	// Name returns the provider name.
	Name() string

	// Close releases any resources held by the provider.
	Close() error
}

// Cache is an in-memory LRU of embeddings keyed by content hash. A single
// lock guards the map; eviction never blocks readers beyond that lock.
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

// NewCache creates an embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		// Unreachable with a positive size; keep the zero-config fallback.
		cache, _ = lru.New[string, *Embedding](10000)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of the cached embedding so caller mutations can't
// pollute the cache.
func (c *Cache) Get(hash string) (*Embedding, bool) {
	emb, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	vec := make([]float32, len(emb.Vector))
	copy(vec, emb.Vector)
	return &Embedding{
		Vector:    vec,
		Dimension: emb.Dimension,
		Provider:  emb.Provider,
		Model:     emb.Model,
		Hash:      emb.Hash,
	}, true
}

// Set stores an embedding; the LRU evicts automatically at capacity.
func (c *Cache) Set(hash string, emb *Embedding) {
	c.cache.Add(hash, emb)
}

// Len returns the current cache size.
func (c *Cache) Len() int { return c.cache.Len() }

// ComputeHash returns the SHA-256 hex digest used as the cache key.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
