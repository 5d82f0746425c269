package types

import "time"

// VectorPayload is the metadata stored alongside an embedding vector.
// It is the only structure that crosses the storage boundary; everything
// a search result needs must be recoverable from it without re-reading
// the source file.
type VectorPayload struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	FileType   string    `json:"file_type"`
	Size       int64     `json:"size"`
	Snippet    string    `json:"snippet,omitempty"`
	Author     string    `json:"author,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
	IndexedAt  time.Time `json:"indexed_at"`
}
