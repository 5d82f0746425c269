package searcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectralab/codelens/pkg/types"
)

func TestWeightsValidate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())

	assert.ErrorIs(t, Weights{Similarity: -0.1}.Validate(), ErrBadWeights)
	assert.ErrorIs(t, Weights{}.Validate(), ErrBadWeights)

	// Weights don't have to sum to 1.
	assert.NoError(t, Weights{Similarity: 2.0}.Validate())
}

func TestFileSizeScoreBand(t *testing.T) {
	assert.Equal(t, 0.0, fileSizeScore(0))
	assert.Equal(t, 1.0, fileSizeScore(1<<10))
	assert.Equal(t, 1.0, fileSizeScore(25<<10))
	assert.Equal(t, 1.0, fileSizeScore(50<<10))

	// Decays outside the band but never below the large-file floor.
	assert.Less(t, fileSizeScore(100), 1.0)
	assert.Less(t, fileSizeScore(10<<20), 1.0)
	assert.GreaterOrEqual(t, fileSizeScore(1<<30), 0.1)
}

func TestFileTypeScore(t *testing.T) {
	assert.Equal(t, 1.0, fileTypeScore("go"))
	assert.Equal(t, 1.0, fileTypeScore("GO"))
	assert.Greater(t, fileTypeScore("go"), fileTypeScore("md"))
	assert.Greater(t, fileTypeScore("md"), fileTypeScore("json"))
	assert.Equal(t, 0.3, fileTypeScore("xyz"))
}

func TestFreshnessScoreDecay(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 1.0, freshnessScore(now, now))
	assert.Equal(t, 1.0, freshnessScore(time.Time{}, now))

	mid := freshnessScore(now.Add(-45*24*time.Hour), now)
	assert.Greater(t, mid, freshnessFloor)
	assert.Less(t, mid, 1.0)

	old := freshnessScore(now.Add(-90*24*time.Hour), now)
	assert.InDelta(t, freshnessFloor, old, 1e-9)

	ancient := freshnessScore(now.Add(-365*24*time.Hour), now)
	assert.InDelta(t, freshnessFloor, ancient, 1e-9)
}

func TestCompositeScoreMonotonicInSimilarity(t *testing.T) {
	now := time.Now()
	base := types.SearchResult{
		FileType:   "go",
		Size:       10 << 10,
		ModifiedAt: now.Add(-time.Hour),
	}
	w := DefaultWeights()

	lo := base
	lo.SimilarityScore = 0.3
	hi := base
	hi.SimilarityScore = 0.9

	assert.Greater(t, compositeScore(hi, 0.5, w, now), compositeScore(lo, 0.5, w, now))
}

func TestCompositeScoreRewardsKeywordOverlap(t *testing.T) {
	now := time.Now()
	res := types.SearchResult{FileType: "go", Size: 5 << 10, SimilarityScore: 0.5, ModifiedAt: now}
	w := DefaultWeights()

	assert.Greater(t, compositeScore(res, 1.0, w, now), compositeScore(res, 0.0, w, now))
}
