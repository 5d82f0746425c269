package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectralab/codelens/internal/pipeline"
	"github.com/vectralab/codelens/pkg/types"
)

// mockFileIndexer records calls and returns configured errors per path.
type mockFileIndexer struct {
	mu    sync.Mutex
	paths []string
	errs  map[string]error
	// failCount fails a path the first N times, then succeeds.
	failCount map[string]int
}

func (m *mockFileIndexer) IndexPath(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)
	if n, ok := m.failCount[path]; ok && n > 0 {
		m.failCount[path] = n - 1
		return errors.New("transient failure")
	}
	if err, ok := m.errs[path]; ok {
		return err
	}
	return nil
}

func (m *mockFileIndexer) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.paths))
	copy(out, m.paths)
	return out
}

// fixedSampler returns a scripted load sequence, repeating the last value.
type fixedSampler struct {
	mu     sync.Mutex
	values []float64
	i      int
}

func (s *fixedSampler) Sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.i < len(s.values)-1 {
		v := s.values[s.i]
		s.i++
		return v
	}
	return s.values[len(s.values)-1]
}

func newTestIndexer(fi FileIndexer, maxRetries int) *PriorityIndexer {
	controller := NewBatchController(1, 50, &fixedSampler{values: []float64{0.6}})
	return New(fi, controller, NewCollector(16), maxRetries, nil)
}

func TestNextBatchStrictPriorityOrdering(t *testing.T) {
	pi := newTestIndexer(&mockFileIndexer{}, 3)

	pi.Enqueue("a.py", types.PriorityNormal)
	pi.Enqueue("b.py", types.PriorityCritical)
	pi.Enqueue("c.py", types.PriorityLow)

	batch := pi.NextBatch(2)
	require.Len(t, batch, 2)
	assert.Equal(t, "b.py", batch[0].Path)
	assert.Equal(t, "a.py", batch[1].Path)

	rest := pi.NextBatch(2)
	require.Len(t, rest, 1)
	assert.Equal(t, "c.py", rest[0].Path)
}

func TestNextBatchFIFOWithinTier(t *testing.T) {
	pi := newTestIndexer(&mockFileIndexer{}, 3)

	for i := 0; i < 5; i++ {
		pi.Enqueue(fmt.Sprintf("file%d.go", i), types.PriorityNormal)
	}

	batch := pi.NextBatch(5)
	require.Len(t, batch, 5)
	for i, task := range batch {
		assert.Equal(t, fmt.Sprintf("file%d.go", i), task.Path)
	}
}

func TestRunProcessesEverything(t *testing.T) {
	fi := &mockFileIndexer{}
	pi := newTestIndexer(fi, 3)

	for i := 0; i < 20; i++ {
		pi.Enqueue(fmt.Sprintf("f%d.go", i), types.PriorityNormal)
	}

	require.NoError(t, pi.Run(context.Background()))
	assert.Equal(t, 0, pi.QueueDepth())
	assert.Len(t, fi.calls(), 20)

	stats := pi.Stats()
	assert.Equal(t, uint64(20), stats.Completed)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	fi := &mockFileIndexer{failCount: map[string]int{"flaky.go": 2}}
	pi := newTestIndexer(fi, 3)

	pi.Enqueue("flaky.go", types.PriorityNormal)
	require.NoError(t, pi.Run(context.Background()))

	stats := pi.Stats()
	assert.Equal(t, uint64(1), stats.Completed)
	assert.Equal(t, uint64(2), stats.Retried)
	assert.Equal(t, uint64(0), stats.Failed)
	assert.Len(t, fi.calls(), 3)
}

func TestRunExhaustsRetryBudget(t *testing.T) {
	fi := &mockFileIndexer{errs: map[string]error{"doomed.go": errors.New("always fails")}}
	pi := newTestIndexer(fi, 2)

	pi.Enqueue("doomed.go", types.PriorityNormal)
	require.NoError(t, pi.Run(context.Background()))

	stats := pi.Stats()
	assert.Equal(t, uint64(0), stats.Completed)
	assert.Equal(t, uint64(2), stats.Retried)
	assert.Equal(t, uint64(1), stats.Failed)
	// Initial attempt plus two retries.
	assert.Len(t, fi.calls(), 3)
}

func TestRunSkipsDataErrors(t *testing.T) {
	fi := &mockFileIndexer{errs: map[string]error{
		"garbage.bin": fmt.Errorf("%w: unparseable", pipeline.ErrSkipFile),
	}}
	pi := newTestIndexer(fi, 3)

	pi.Enqueue("garbage.bin", types.PriorityNormal)
	pi.Enqueue("fine.go", types.PriorityNormal)
	require.NoError(t, pi.Run(context.Background()))

	stats := pi.Stats()
	assert.Equal(t, uint64(1), stats.Completed)
	assert.Equal(t, uint64(1), stats.Skipped)
	assert.Equal(t, uint64(0), stats.Retried)
	// Skips don't burn retries.
	assert.Len(t, fi.calls(), 2)
}

func TestRunRecordsBatchMetrics(t *testing.T) {
	fi := &mockFileIndexer{}
	collector := NewCollector(16)
	controller := NewBatchController(1, 4, &fixedSampler{values: []float64{0.6}})
	pi := New(fi, controller, collector, 3, nil)

	for i := 0; i < 3; i++ {
		pi.Enqueue(fmt.Sprintf("f%d.go", i), types.PriorityNormal)
	}
	require.NoError(t, pi.Run(context.Background()))

	history := collector.History()
	require.NotEmpty(t, history)
	total := 0
	for _, m := range history {
		total += m.Processed
	}
	assert.Equal(t, 3, total)
}

func TestRunCancellationRequeuesRemainder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fi := &mockFileIndexer{}
	controller := NewBatchController(5, 5, &fixedSampler{values: []float64{0.6}})
	pi := New(fi, controller, NewCollector(16), 3, nil)

	done := make(chan struct{})
	slow := &slowIndexer{inner: fi, started: done, block: ctx.Done()}
	pi.indexer = slow

	for i := 0; i < 5; i++ {
		pi.Enqueue(fmt.Sprintf("f%d.go", i), types.PriorityNormal)
	}

	go func() {
		<-done
		cancel()
	}()

	err := pi.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	// The first task ran; at least part of the batch was re-queued.
	assert.Greater(t, pi.QueueDepth(), 0)
}

// slowIndexer signals the first call and then blocks until released.
type slowIndexer struct {
	inner   FileIndexer
	started chan struct{}
	block   <-chan struct{}
	once    sync.Once
}

func (s *slowIndexer) IndexPath(ctx context.Context, path string) error {
	s.once.Do(func() { close(s.started) })
	<-s.block
	return s.inner.IndexPath(ctx, path)
}

func TestRetryGoesToBackOfTier(t *testing.T) {
	fi := &mockFileIndexer{failCount: map[string]int{"first.go": 1}}
	pi := newTestIndexer(fi, 3)

	now := time.Now()
	pi.push(types.IndexingTask{Path: "first.go", Priority: types.PriorityNormal, MaxRetries: 3, CreatedAt: now})
	pi.push(types.IndexingTask{Path: "second.go", Priority: types.PriorityNormal, MaxRetries: 3, CreatedAt: now.Add(time.Millisecond)})

	require.NoError(t, pi.Run(context.Background()))

	calls := fi.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "first.go", calls[0])
	assert.Equal(t, "second.go", calls[1])
	assert.Equal(t, "first.go", calls[2])
}
