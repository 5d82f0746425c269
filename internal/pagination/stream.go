package pagination

import "context"

// Chunk is one slice of a streamed result set with delivery progress.
type Chunk[T any] struct {
	Items    []T     `json:"items"`
	Offset   int     `json:"offset"`
	Progress float64 `json:"progress"` // 0..100, percent of items delivered
	Last     bool    `json:"last"`
}

// Stream delivers items in bounded chunks on the returned channel, closing
// it after the last chunk or when ctx is cancelled. Every item is delivered
// exactly once. Empty input produces a single empty terminal chunk so
// consumers always observe completion.
func Stream[T any](ctx context.Context, items []T, chunkSize int) <-chan Chunk[T] {
	if chunkSize <= 0 {
		chunkSize = DefaultPageSize
	}
	out := make(chan Chunk[T])
	go func() {
		defer close(out)
		total := len(items)
		if total == 0 {
			select {
			case out <- Chunk[T]{Progress: 100, Last: true}:
			case <-ctx.Done():
			}
			return
		}
		for offset := 0; offset < total; offset += chunkSize {
			end := offset + chunkSize
			if end > total {
				end = total
			}
			chunk := Chunk[T]{
				Items:    items[offset:end],
				Offset:   offset,
				Progress: float64(end) / float64(total) * 100,
				Last:     end == total,
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
