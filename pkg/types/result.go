package types

import "time"

// SearchResult is a single-project search hit. Constructed per query,
// never persisted.
type SearchResult struct {
	Path            string
	Name            string
	FileType        string
	SimilarityScore float64 // raw vector similarity from the store
	ConfidenceScore float64 // composite score after ranking
	Size            int64
	Snippet         string
	Author          string
	ModifiedAt      time.Time
}

// EnhancedSearchResult is a workspace search hit: a SearchResult annotated
// with the owning project and its relationship to the query target.
type EnhancedSearchResult struct {
	SearchResult

	ProjectID           string
	ProjectName         string
	RelationshipContext string  // "target", "dependency", "workspace", ...
	FinalScore          float64 // cross-project composite score
}

// Validate checks structural invariants on a search result.
func (sr *SearchResult) Validate() error {
	if sr.Path == "" {
		return ErrMissingPath
	}
	if sr.SimilarityScore < 0 {
		return ErrInvalidScore
	}
	return nil
}
