package searcher

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/vectralab/codelens/pkg/types"
)

// File-size scoring band: files inside [sizeBandLow, sizeBandHigh] score
// highest; the score decays outside it.
const (
	sizeBandLow  = 1 << 10  // 1KB
	sizeBandHigh = 50 << 10 // 50KB
)

// Freshness decays linearly from 1.0 at age zero to freshnessFloor at
// freshnessHorizon and beyond.
const (
	freshnessHorizonDays = 90
	freshnessFloor       = 0.1
)

// ErrBadWeights is returned for negative or all-zero ranking weights.
var ErrBadWeights = errors.New("ranking weights must be non-negative and not all zero")

// Weights are the tunable factors of the composite score.
type Weights struct {
	Similarity float64
	Keyword    float64
	Size       float64
	Type       float64
	Freshness  float64
}

// DefaultWeights is similarity-dominant; keyword overlap carries the
// hybrid signal, the remaining factors are tie-breakers.
func DefaultWeights() Weights {
	return Weights{
		Similarity: 0.7,
		Keyword:    0.15,
		Size:       0.05,
		Type:       0.05,
		Freshness:  0.05,
	}
}

// Validate rejects unusable weight sets.
func (w Weights) Validate() error {
	if w.Similarity < 0 || w.Keyword < 0 || w.Size < 0 || w.Type < 0 || w.Freshness < 0 {
		return ErrBadWeights
	}
	if w.Similarity+w.Keyword+w.Size+w.Type+w.Freshness == 0 {
		return ErrBadWeights
	}
	return nil
}

// fileSizeScore peaks for files in the normal band and decays outside it.
// Tiny files rarely carry enough context; huge files are usually generated.
func fileSizeScore(size int64) float64 {
	switch {
	case size <= 0:
		return 0
	case size >= sizeBandLow && size <= sizeBandHigh:
		return 1.0
	case size < sizeBandLow:
		return float64(size) / float64(sizeBandLow)
	default:
		return math.Max(0.1, float64(sizeBandHigh)/float64(size))
	}
}

// sourceTypes score highest; docs and config score lower but nonzero.
var fileTypeScores = map[string]float64{
	"go": 1.0, "py": 1.0, "js": 1.0, "ts": 1.0, "rs": 1.0,
	"java": 1.0, "c": 1.0, "cpp": 1.0, "rb": 1.0,
	"md": 0.6, "txt": 0.5,
	"json": 0.4, "yaml": 0.4, "yml": 0.4, "toml": 0.4,
}

func fileTypeScore(fileType string) float64 {
	if s, ok := fileTypeScores[strings.ToLower(fileType)]; ok {
		return s
	}
	return 0.3
}

// freshnessScore decays linearly with age from 1.0 to the floor at 90 days.
func freshnessScore(modifiedAt, now time.Time) float64 {
	if modifiedAt.IsZero() || !modifiedAt.Before(now) {
		return 1.0
	}
	ageDays := now.Sub(modifiedAt).Hours() / 24
	if ageDays >= freshnessHorizonDays {
		return freshnessFloor
	}
	return 1.0 - (1.0-freshnessFloor)*(ageDays/freshnessHorizonDays)
}

// compositeScore ranks one candidate. keyword is the precomputed lexical
// overlap for this candidate.
func compositeScore(res types.SearchResult, keyword float64, w Weights, now time.Time) float64 {
	return res.SimilarityScore*w.Similarity +
		keyword*w.Keyword +
		fileSizeScore(res.Size)*w.Size +
		fileTypeScore(res.FileType)*w.Type +
		freshnessScore(res.ModifiedAt, now)*w.Freshness
}
