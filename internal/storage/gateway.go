package storage

import (
	"context"
	"errors"

	"github.com/vectralab/codelens/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDimensionMismatch is returned when a vector's length doesn't match
	// the collection's configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnknownCollection is returned for operations against a collection
	// that was never ensured.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Record is one vector plus its payload, keyed deterministically by path.
type Record struct {
	Path    string
	Vector  []float32
	Payload types.VectorPayload
}

// ScoredRecord is a search hit with its raw similarity score.
type ScoredRecord struct {
	ID      string
	Score   float64
	Payload types.VectorPayload
}

// RejectedRecord reports a single record dropped from a batch upsert.
type RejectedRecord struct {
	Path   string
	Reason string
}

// BatchResult summarizes a batch upsert. Rejected items never abort the
// batch; the remaining records still land.
type BatchResult struct {
	Upserted int
	Rejected []RejectedRecord
}

// Gateway is the only interface through which components reach the vector
// database. Writes are fire-and-confirm: no buffering, no internal retry.
type Gateway interface {
	// EnsureCollection validates that the named collection exists with the
	// given dimension, creating it if absent. On a dimension mismatch with an
	// existing collection it fails when autoFix is false; when autoFix is
	// true it creates and returns a dimension-suffixed collection name
	// instead of touching the original data.
	EnsureCollection(ctx context.Context, name string, dimension int, autoFix bool) (string, error)

	// Upsert writes one record. The write is idempotent: the record ID is a
	// pure function of the path, so re-indexing a path overwrites.
	Upsert(ctx context.Context, collection string, rec Record) error

	// UpsertBatch writes many records, rejecting invalid items per-record.
	UpsertBatch(ctx context.Context, collection string, recs []Record) (BatchResult, error)

	// Search returns up to limit records nearest to vector, best first,
	// excluding scores below scoreThreshold.
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float64) ([]ScoredRecord, error)

	// Delete removes the record for path. Deleting an absent path is not an
	// error.
	Delete(ctx context.Context, collection string, path string) error

	// Count returns the number of records in a collection.
	Count(ctx context.Context, collection string) (int, error)

	Close() error
}
