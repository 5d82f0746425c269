// Package searcher implements single-project semantic search with hybrid
// ranking: vector similarity from the storage gateway blended with lexical
// keyword overlap, file-size and file-type priors, and freshness decay.
//
// The ranking weights are runtime-tunable and similarity-dominant by
// default. Filters are pure predicates applied to already-fetched
// candidates; they are never pushed into the vector query.
//
// Responses are cached in a process-local LRU with TTL, optionally fronted
// by a shared Redis cache for multi-process deployments. Every response is
// stamped with its generation time so staleness is decided at read time.
package searcher
