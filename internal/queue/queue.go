// Package queue normalizes raw file-change notifications into change
// records and drains them sequentially into the indexing pipeline.
//
// A single drain loop runs at a time per queue instance, guarded by an
// atomic try-lock: concurrent enqueues while draining simply extend the
// running drain. Enqueue back-pressures by blocking when the buffer is
// full; work is never dropped.
package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vectralab/codelens/internal/pipeline"
	"github.com/vectralab/codelens/pkg/types"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("indexing queue closed")

// FileIndexer is the slice of the pipeline the queue consumes.
type FileIndexer interface {
	IndexPath(ctx context.Context, path string) error
	RemovePath(ctx context.Context, path string) error
}

// Stats are cumulative counters for the queue's lifetime.
type Stats struct {
	Enqueued  uint64
	Processed uint64
	Failed    uint64
	Skipped   uint64
}

// Status is a point-in-time snapshot for status reporting.
type Status struct {
	Processing bool
	QueueDepth int
	Stats      Stats
}

// drainLock provides non-blocking lock semantics using an atomic CAS,
// preserving the one-drain-loop-at-a-time invariant without blocking
// enqueuers.
type drainLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

func (l *drainLock) TryAcquire() bool { return l.state.CompareAndSwap(0, 1) }
func (l *drainLock) Release()         { l.state.Store(0) }

// Queue is the indexing queue. Change records flow in via Enqueue (or the
// watcher bridge) and out through a single sequential drain loop.
type Queue struct {
	indexer FileIndexer
	records chan types.ChangeRecord
	lock    drainLock
	log     *zap.Logger

	closed    atomic.Bool
	enqueued  atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
	skipped   atomic.Uint64
}

// New creates a queue with the given buffer capacity. Capacity bounds
// memory; a full buffer blocks enqueuers rather than dropping work.
func New(indexer FileIndexer, capacity int, log *zap.Logger) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		indexer: indexer,
		records: make(chan types.ChangeRecord, capacity),
		log:     log,
	}
}

// Enqueue normalizes a change into a record and schedules a drain. Blocks
// when the buffer is full. Returns ErrQueueClosed after Close and an error
// for unknown change kinds.
func (q *Queue) Enqueue(ctx context.Context, kind types.ChangeKind, path string) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	if !kind.Valid() {
		return errors.New("unknown change kind: " + string(kind))
	}

	rec := types.ChangeRecord{
		Path:     path,
		Kind:     kind,
		QueuedAt: time.Now(),
		State:    types.ChangePending,
	}

	select {
	case q.records <- rec:
		q.enqueued.Add(1)
	case <-ctx.Done():
		return ctx.Err()
	}

	go q.drain(ctx)
	return nil
}

// drain processes records until the buffer empties. Only one drain runs at
// a time; losers of the try-lock return immediately because the winner will
// see their records. After releasing the lock the winner rechecks the
// buffer: an enqueuer may have sent a record and lost the try-lock while
// this drain was past its last empty check, and without the recheck that
// record would sit buffered with no drain scheduled.
func (q *Queue) drain(ctx context.Context) {
	for {
		if !q.lock.TryAcquire() {
			return
		}
		q.drainBuffered(ctx)
		q.lock.Release()

		if ctx.Err() != nil || len(q.records) == 0 {
			return
		}
	}
}

// drainBuffered consumes records until the buffer is empty or ctx is done.
// Caller holds the drain lock.
func (q *Queue) drainBuffered(ctx context.Context) {
	for {
		select {
		case rec := <-q.records:
			q.process(ctx, rec)
		case <-ctx.Done():
			return
		default:
			return
		}
	}
}

// process handles one record. A failure is counted and logged; the drain
// continues with the next record. There is no automatic re-enqueue here;
// retry for bulk indexing belongs to the priority indexer.
func (q *Queue) process(ctx context.Context, rec types.ChangeRecord) {
	rec.State = types.ChangeProcessing

	var err error
	switch rec.Kind {
	case types.ChangeCreated, types.ChangeModified:
		err = q.indexer.IndexPath(ctx, rec.Path)
	case types.ChangeDeleted:
		err = q.indexer.RemovePath(ctx, rec.Path)
	}

	switch {
	case err == nil:
		rec.State = types.ChangeCompleted
		q.processed.Add(1)
	case errors.Is(err, pipeline.ErrSkipFile):
		rec.State = types.ChangeCompleted
		q.skipped.Add(1)
		q.log.Debug("change skipped",
			zap.String("path", rec.Path),
			zap.String("kind", string(rec.Kind)),
			zap.Error(err))
	default:
		rec.State = types.ChangeFailed
		rec.Err = err.Error()
		q.failed.Add(1)
		q.log.Warn("change failed",
			zap.String("path", rec.Path),
			zap.String("kind", string(rec.Kind)),
			zap.Error(err))
	}
}

// Status reports the queue's current state.
func (q *Queue) Status() Status {
	return Status{
		Processing: q.lock.state.Load() == 1,
		QueueDepth: len(q.records),
		Stats: Stats{
			Enqueued:  q.enqueued.Load(),
			Processed: q.processed.Load(),
			Failed:    q.failed.Load(),
			Skipped:   q.skipped.Load(),
		},
	}
}

// Close stops accepting new records. Records already buffered are still
// drained by any in-flight drain loop.
func (q *Queue) Close() {
	q.closed.Store(true)
}
