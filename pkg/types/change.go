package types

import "time"

// ChangeKind classifies a file-change notification.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// Valid reports whether the kind is one of the known change kinds.
func (k ChangeKind) Valid() bool {
	switch k {
	case ChangeCreated, ChangeModified, ChangeDeleted:
		return true
	}
	return false
}

// ChangeState tracks a change record through the ingestion queue.
type ChangeState string

const (
	ChangePending    ChangeState = "pending"
	ChangeProcessing ChangeState = "processing"
	ChangeCompleted  ChangeState = "completed"
	ChangeFailed     ChangeState = "failed"
)

// ChangeRecord is a normalized file-change notification. Records are created
// by the ingestion source (watcher or explicit API call) and consumed by the
// indexing queue's drain loop.
type ChangeRecord struct {
	Path     string
	Kind     ChangeKind
	QueuedAt time.Time
	State    ChangeState
	Err      string // non-empty only when State == ChangeFailed
}
