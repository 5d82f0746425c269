// Package pagination provides opaque cursor pagination and bounded
// streaming over ranked result sets.
package pagination

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vectralab/codelens/pkg/types"
)

// CursorVersion is the current cursor schema version.
const CursorVersion = 1

// Cursor marks a position within one query's result set. Clients treat the
// encoded form as opaque; the checksum rejects tampered or truncated tokens.
type Cursor struct {
	Version  int       `json:"v"`
	Offset   int       `json:"offset"`
	IssuedAt time.Time `json:"issued_at"`
	Checksum string    `json:"sum"`
}

// checksum covers the positional fields so a token edited by hand fails
// decode instead of silently sliding the window.
func (c Cursor) checksum() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%d", c.Version, c.Offset, c.IssuedAt.UnixNano())))
	return hex.EncodeToString(h[:8])
}

// Encode serializes the cursor to a base64 JSON token.
func (c Cursor) Encode() string {
	c.Checksum = c.checksum()
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Decode parses and verifies a cursor token. Empty input means the first
// page. Any corruption returns types.ErrInvalidCursor.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{Version: CursorVersion}, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", types.ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", types.ErrInvalidCursor, err)
	}
	if c.Version != CursorVersion {
		return Cursor{}, fmt.Errorf("%w: unsupported version %d", types.ErrInvalidCursor, c.Version)
	}
	if c.Offset < 0 {
		return Cursor{}, fmt.Errorf("%w: negative offset", types.ErrInvalidCursor)
	}
	if c.Checksum != c.checksum() {
		return Cursor{}, fmt.Errorf("%w: checksum mismatch", types.ErrInvalidCursor)
	}
	return c, nil
}

// Page is one window over a result set.
type Page[T any] struct {
	Items      []T    `json:"items"`
	Total      int    `json:"total"`
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
	NextCursor string `json:"next_cursor,omitempty"`
	PrevCursor string `json:"prev_cursor,omitempty"`
}

// DefaultPageSize is used when the caller passes pageSize <= 0.
const DefaultPageSize = 10

// Paginate slices items at the cursor's offset. Cursors are emitted only
// for pages that exist; an offset past the end yields an empty final page.
func Paginate[T any](items []T, token string, pageSize int) (Page[T], error) {
	cursor, err := Decode(token)
	if err != nil {
		return Page[T]{}, err
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(items)
	start := cursor.Offset
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	page := Page[T]{
		Items:   items[start:end],
		Total:   total,
		HasNext: end < total,
		HasPrev: start > 0,
	}
	now := time.Now()
	if page.HasNext {
		page.NextCursor = Cursor{Version: CursorVersion, Offset: end, IssuedAt: now}.Encode()
	}
	if page.HasPrev {
		prev := start - pageSize
		if prev < 0 {
			prev = 0
		}
		page.PrevCursor = Cursor{Version: CursorVersion, Offset: prev, IssuedAt: now}.Encode()
	}
	return page, nil
}
