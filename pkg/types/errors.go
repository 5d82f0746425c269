package types

import "errors"

// Domain errors shared across components.
var (
	// ErrEmbeddingUnavailable means a query embedding could not be obtained.
	// Callers must surface this distinctly from an empty result set.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrInvalidScope is returned for an unknown workspace search scope, or
	// for a target-relative scope without a target project.
	ErrInvalidScope = errors.New("invalid search scope")

	// ErrInvalidCursor is returned when a pagination cursor fails to decode
	// or its integrity hash does not match.
	ErrInvalidCursor = errors.New("invalid pagination cursor")

	// ErrDependencyCycle is returned when project relationships form a cycle
	// where an acyclic ordering is required.
	ErrDependencyCycle = errors.New("dependency cycle detected")

	// ErrMissingPath marks a search result without a file path.
	ErrMissingPath = errors.New("result path is required")

	// ErrInvalidScore marks a negative similarity score.
	ErrInvalidScore = errors.New("similarity score must be >= 0")
)
