package searcher

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/vectralab/codelens/pkg/types"
)

// Filters narrow already-fetched candidates. All fields are conjunctive;
// zero values mean "no constraint".
type Filters struct {
	FileTypes       []string  // extension allow-list, without the dot
	Directory       string    // path prefix
	ExcludePatterns []string  // substring matches on path
	MinScore        float64   // minimum raw similarity
	Author          string    // exact author match
	ModifiedAfter   time.Time // inclusive lower bound
	ModifiedBefore  time.Time // inclusive upper bound
}

// Matches reports whether a candidate passes every configured predicate.
func (f *Filters) Matches(res types.SearchResult) bool {
	if f == nil {
		return true
	}

	if len(f.FileTypes) > 0 {
		ok := false
		for _, ft := range f.FileTypes {
			if strings.EqualFold(ft, res.FileType) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if f.Directory != "" {
		dir := filepath.Clean(f.Directory)
		if !strings.HasPrefix(filepath.Clean(res.Path), dir) {
			return false
		}
	}

	for _, pattern := range f.ExcludePatterns {
		if pattern != "" && strings.Contains(res.Path, pattern) {
			return false
		}
	}

	if res.SimilarityScore < f.MinScore {
		return false
	}

	if f.Author != "" && res.Author != f.Author {
		return false
	}

	if !f.ModifiedAfter.IsZero() && res.ModifiedAt.Before(f.ModifiedAfter) {
		return false
	}
	if !f.ModifiedBefore.IsZero() && res.ModifiedAt.After(f.ModifiedBefore) {
		return false
	}

	return true
}

// key serializes the filters into the cache key in a stable order.
func (f *Filters) key() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.Join(f.FileTypes, ","))
	b.WriteString("|")
	b.WriteString(f.Directory)
	b.WriteString("|")
	b.WriteString(strings.Join(f.ExcludePatterns, ","))
	b.WriteString("|")
	b.WriteString(fmt.Sprintf("%.4f", f.MinScore))
	b.WriteString("|")
	b.WriteString(f.Author)
	b.WriteString("|")
	if !f.ModifiedAfter.IsZero() {
		b.WriteString(f.ModifiedAfter.UTC().Format(time.RFC3339))
	}
	b.WriteString("|")
	if !f.ModifiedBefore.IsZero() {
		b.WriteString(f.ModifiedBefore.UTC().Format(time.RFC3339))
	}
	return b.String()
}
