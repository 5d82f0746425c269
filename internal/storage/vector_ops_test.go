package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeVectorRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3.0, 0}
	got := deserializeVector(serializeVector(v))
	assert.Equal(t, v, got)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Mismatched lengths and zero vectors degrade to 0 rather than NaN.
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestDeterministicID(t *testing.T) {
	a := DeterministicID("internal/storage/sqlite.go")
	b := DeterministicID("internal/storage/sqlite.go")
	c := DeterministicID("internal/storage/gateway.go")

	require.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36) // canonical UUID form
}
