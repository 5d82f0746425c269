package storage

import "github.com/google/uuid"

// idNamespace scopes deterministic record IDs. Any fixed UUID works; this one
// must never change or every re-index would orphan its predecessors.
var idNamespace = uuid.MustParse("8f3c1c6e-2b5a-4f1d-9b7e-6a0d4c2e9f51")

// DeterministicID derives the vector-store key for a file path. The same
// path always yields the same ID across processes and restarts, which is
// what makes upserts idempotent. The raw path is never used as a key: the
// store requires a fixed-format identifier.
func DeterministicID(path string) string {
	return uuid.NewSHA1(idNamespace, []byte(path)).String()
}
