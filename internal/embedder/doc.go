// Package embedder defines the embedding provider consumed by the indexing
// pipeline and the search engine, plus an LRU cache keyed by content hash
// and retry with exponential backoff for transient provider failures.
//
// The provider is an external collaborator: when it cannot produce an
// embedding, the calling operation must abort. No embedding means no index
// entry and no search.
package embedder
