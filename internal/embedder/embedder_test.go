package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	a := ComputeHash("package main")
	b := ComputeHash("package main")
	c := ComputeHash("package other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // sha256 hex
}

func TestCacheGetReturnsACopy(t *testing.T) {
	cache := NewCache(8)
	cache.Set("k", &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3, Hash: "k"})

	got, ok := cache.Get("k")
	require.True(t, ok)
	got.Vector[0] = 99

	again, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])
}

func TestCacheMissAndLen(t *testing.T) {
	cache := NewCache(2)
	_, ok := cache.Get("absent")
	assert.False(t, ok)

	cache.Set("a", &Embedding{Hash: "a"})
	cache.Set("b", &Embedding{Hash: "b"})
	cache.Set("c", &Embedding{Hash: "c"}) // evicts a
	assert.Equal(t, 2, cache.Len())

	_, ok = cache.Get("a")
	assert.False(t, ok)
}

func TestLocalProviderIsDeterministic(t *testing.T) {
	p := NewLocalProvider(64, nil)
	ctx := context.Background()

	first, err := p.Embed(ctx, "func main() {}")
	require.NoError(t, err)
	second, err := p.Embed(ctx, "func main() {}")
	require.NoError(t, err)
	other, err := p.Embed(ctx, "type Server struct {}")
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.NotEqual(t, first.Vector, other.Vector)
	assert.Equal(t, 64, first.Dimension)
	assert.Len(t, first.Vector, 64)
	assert.Equal(t, "local", first.Provider)
}

func TestLocalProviderVectorsAreUnitLength(t *testing.T) {
	p := NewLocalProvider(128, nil)
	emb, err := p.Embed(context.Background(), "some source text")
	require.NoError(t, err)

	var norm float64
	for _, f := range emb.Vector {
		norm += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, norm, 1e-4)
}

func TestLocalProviderRejectsEmptyText(t *testing.T) {
	p := NewLocalProvider(32, nil)
	_, err := p.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProviderUsesCache(t *testing.T) {
	cache := NewCache(8)
	p := NewLocalProvider(32, cache)

	emb, err := p.Embed(context.Background(), "cached text")
	require.NoError(t, err)

	hit, ok := cache.Get(emb.Hash)
	require.True(t, ok)
	assert.Equal(t, emb.Vector, hit.Vector)
}

func TestLocalProviderDefaultDimension(t *testing.T) {
	p := NewLocalProvider(0, nil)
	assert.Equal(t, 384, p.Dimension())
}
