package queue

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/vectralab/codelens/pkg/types"
)

// Watcher bridges OS file events into queue enqueues. It is the only
// producer that runs unattended, so it filters aggressively: only configured
// extensions pass, and hidden directories are never watched.
type Watcher struct {
	queue      *Queue
	fsw        *fsnotify.Watcher
	extensions map[string]struct{}
	log        *zap.Logger
}

// NewWatcher creates a watcher feeding q. extensions is the allowed set,
// e.g. [".go", ".py"]; empty means everything passes.
func NewWatcher(q *Queue, extensions []string, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = struct{}{}
	}

	return &Watcher{queue: q, fsw: fsw, extensions: extSet, log: log}, nil
}

// Add registers a directory for watching.
func (w *Watcher) Add(dir string) error {
	return w.fsw.Add(dir)
}

// Run pumps fsnotify events into the queue until ctx is cancelled. Enqueue
// blocking is the back-pressure mechanism: when the queue is full, the
// watcher stalls instead of dropping events.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !w.accepts(event.Name) {
		return
	}

	var kind types.ChangeKind
	switch {
	case event.Op.Has(fsnotify.Create):
		kind = types.ChangeCreated
	case event.Op.Has(fsnotify.Write):
		kind = types.ChangeModified
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		kind = types.ChangeDeleted
	default:
		return // chmod etc.
	}

	if err := w.queue.Enqueue(ctx, kind, event.Name); err != nil {
		w.log.Warn("enqueue from watcher failed",
			zap.String("path", event.Name),
			zap.Error(err))
	}
}

func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Close shuts the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
