package indexer

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vectralab/codelens/internal/pipeline"
	"github.com/vectralab/codelens/pkg/types"
)

// DefaultMaxRetries is the per-task retry budget.
const DefaultMaxRetries = 3

// FileIndexer is the slice of the pipeline the priority indexer consumes.
type FileIndexer interface {
	IndexPath(ctx context.Context, path string) error
}

// Stats summarize the indexer's lifetime counters.
type Stats struct {
	Queued    int
	Completed uint64
	Retried   uint64
	Failed    uint64
	Skipped   uint64
}

// PriorityIndexer schedules indexing tasks by (priority, creation time) and
// processes them in adaptively sized batches.
type PriorityIndexer struct {
	indexer    FileIndexer
	controller *BatchController
	metrics    *Collector
	maxRetries int
	log        *zap.Logger

	mu   sync.Mutex
	heap taskHeap
	seq  uint64

	statsMu   sync.Mutex
	completed uint64
	retried   uint64
	failed    uint64
	skipped   uint64
}

// New constructs a priority indexer. controller and metrics may not be nil;
// maxRetries <= 0 selects DefaultMaxRetries.
func New(indexer FileIndexer, controller *BatchController, metrics *Collector, maxRetries int, log *zap.Logger) *PriorityIndexer {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PriorityIndexer{
		indexer:    indexer,
		controller: controller,
		metrics:    metrics,
		maxRetries: maxRetries,
		log:        log,
	}
}

// Enqueue adds a task for path at the given priority.
func (pi *PriorityIndexer) Enqueue(path string, priority types.TaskPriority) {
	task := types.IndexingTask{
		Path:       path,
		Priority:   priority,
		MaxRetries: pi.maxRetries,
		CreatedAt:  time.Now(),
	}
	pi.push(task)
}

func (pi *PriorityIndexer) push(task types.IndexingTask) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.seq++
	heap.Push(&pi.heap, &taskEntry{task: task, seq: pi.seq})
}

// NextBatch pops up to n highest-priority tasks. A task of a lower tier is
// never returned while a higher tier still has queued tasks.
func (pi *PriorityIndexer) NextBatch(n int) []types.IndexingTask {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	if n > pi.heap.Len() {
		n = pi.heap.Len()
	}
	batch := make([]types.IndexingTask, 0, n)
	for i := 0; i < n; i++ {
		entry := heap.Pop(&pi.heap).(*taskEntry)
		batch = append(batch, entry.task)
	}
	return batch
}

// QueueDepth returns the number of queued tasks.
func (pi *PriorityIndexer) QueueDepth() int {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.heap.Len()
}

// Run drains the queue batch by batch until it is empty or ctx is
// cancelled. Each batch's size comes from the controller, adjusted by the
// most recent load sample before the batch starts.
//
// A batch is not cancellable mid-flight from the outside: on ctx
// cancellation the unprocessed remainder of the current batch is re-queued
// for the next run rather than lost.
func (pi *PriorityIndexer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		size := pi.controller.Adjust()
		batch := pi.NextBatch(size)
		if len(batch) == 0 {
			return nil
		}

		pi.runBatch(ctx, batch)
	}
}

// runBatch executes one batch and records its metrics.
func (pi *PriorityIndexer) runBatch(ctx context.Context, batch []types.IndexingTask) {
	m := NewBatchMetrics(len(batch))

	for i, task := range batch {
		if ctx.Err() != nil {
			// Re-queue the remainder; the batch's completed portion stands.
			for _, rest := range batch[i:] {
				pi.push(rest)
			}
			break
		}
		if pi.runTask(ctx, task) {
			m.Processed++
		} else {
			m.Failed++
		}
	}

	m.EndedAt = time.Now()
	pi.metrics.Record(m)
}

// runTask processes one task, applying the retry policy. Returns true when
// the task completed (including skip outcomes), false on failure.
func (pi *PriorityIndexer) runTask(ctx context.Context, task types.IndexingTask) bool {
	err := pi.indexer.IndexPath(ctx, task.Path)
	if err == nil {
		pi.count(&pi.completed)
		return true
	}

	// Data errors are terminal per item and don't burn retries.
	if errors.Is(err, pipeline.ErrSkipFile) {
		pi.count(&pi.skipped)
		pi.log.Debug("task skipped", zap.String("path", task.Path), zap.Error(err))
		return true
	}

	if task.RetryCount < task.MaxRetries {
		task.RetryCount++
		// Fresh creation time sends the retry to the back of its tier.
		task.CreatedAt = time.Now()
		pi.push(task)
		pi.count(&pi.retried)
		pi.log.Debug("task re-queued",
			zap.String("path", task.Path),
			zap.Int("retry", task.RetryCount),
			zap.Error(err))
		return false
	}

	pi.count(&pi.failed)
	pi.log.Warn("task failed permanently",
		zap.String("path", task.Path),
		zap.Int("retries", task.RetryCount),
		zap.Error(err))
	return false
}

func (pi *PriorityIndexer) count(field *uint64) {
	pi.statsMu.Lock()
	*field++
	pi.statsMu.Unlock()
}

// Stats returns a snapshot of lifetime counters.
func (pi *PriorityIndexer) Stats() Stats {
	pi.statsMu.Lock()
	defer pi.statsMu.Unlock()
	return Stats{
		Queued:    pi.QueueDepth(),
		Completed: pi.completed,
		Retried:   pi.retried,
		Failed:    pi.failed,
		Skipped:   pi.skipped,
	}
}
