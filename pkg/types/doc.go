// Package types defines the shared record types that flow through the
// indexing pipeline and the search engine: file-change records, priority
// indexing tasks, vector payloads, and search results.
//
// These types are plain data carriers. Components that own behavior
// (queueing, batching, ranking) live under internal/ and operate on them.
package types
