package queue

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherAccepts(t *testing.T) {
	q := New(&mockIndexer{}, 16, nil)
	defer q.Close()

	w, err := NewWatcher(q, []string{".go", ".PY"}, nil)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	assert.True(t, w.accepts("/src/main.go"))
	assert.True(t, w.accepts("/src/script.py")) // extension match is case-insensitive
	assert.False(t, w.accepts("/src/README.md"))
	assert.False(t, w.accepts("/src/.hidden.go"))
}

func TestWatcherAcceptsEverythingWithoutExtensions(t *testing.T) {
	q := New(&mockIndexer{}, 16, nil)
	defer q.Close()

	w, err := NewWatcher(q, nil, nil)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	assert.True(t, w.accepts("/src/Makefile"))
	assert.False(t, w.accepts("/src/.git"))
}

func TestWatcherEnqueuesFileEvents(t *testing.T) {
	mi := &mockIndexer{}
	q := New(mi, 16, nil)
	defer q.Close()

	w, err := NewWatcher(q, []string{".go"}, nil)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	dir := t.TempDir()
	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	path := filepath.Join(dir, "new.go")
	require.NoError(t, os.WriteFile(path, []byte("package new\n"), 0o644))
	require.Eventually(t, func() bool {
		for _, p := range mi.indexedPaths() {
			if p == path {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	// Files outside the extension set never reach the queue.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond)
	for _, p := range mi.indexedPaths() {
		assert.NotContains(t, p, "notes.txt")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
