// Package storage implements the vector store gateway: deterministic ID
// derivation, collection dimension validation, and upsert/search/delete
// against the underlying SQLite-backed vector database.
//
// No other component talks to the database directly. The gateway does not
// buffer writes and does not retry; callers own retry policy.
//
// Two build configurations are supported, selected by build tags:
//
//   - cgo + sqlite_vec: github.com/mattn/go-sqlite3 with the sqlite-vec
//     extension computing cosine distance inside SQL.
//   - purego (default): modernc.org/sqlite with cosine similarity computed
//     in Go over the candidate vectors.
package storage
