package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

func TestWatcher_HandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"policy.md": "x"})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.md"), 0o755))

	w := NewWatcher(dir, 0, nil)

	tests := []struct {
		name     string
		file     string
		op       fsnotify.Op
		relevant bool
	}{
		{name: "create", file: "policy.md", op: fsnotify.Create, relevant: true},
		{name: "write", file: "policy.md", op: fsnotify.Write, relevant: true},
		{name: "remove", file: "gone.md", op: fsnotify.Remove, relevant: true},
		{name: "rename", file: "moved.txt", op: fsnotify.Rename, relevant: true},
		{name: "chmod only", file: "policy.md", op: fsnotify.Chmod, relevant: false},
		{name: "write with chmod", file: "policy.md", op: fsnotify.Write | fsnotify.Chmod, relevant: true},
		{name: "hidden file", file: ".policy.md.swp", op: fsnotify.Write, relevant: false},
		{name: "hidden markdown", file: ".draft.md", op: fsnotify.Create, relevant: false},
		{name: "unsupported type", file: "sheet.xlsx", op: fsnotify.Create, relevant: false},
		{name: "directory", file: "folder.md", op: fsnotify.Create, relevant: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			got, relevant := w.handleFsEvent(fsnotify.Event{Name: path, Op: tt.op})

			assert.Equal(t, tt.relevant, relevant)
			if tt.relevant {
				assert.Equal(t, path, got)
			}
		})
	}
}

func TestWatcher_HandleFsEvent_HiddenParent(t *testing.T) {
	parent := filepath.Join(t.TempDir(), ".riskpilot")
	require.NoError(t, os.Mkdir(parent, 0o755))
	w := NewWatcher(parent, 0, nil)

	path := filepath.Join(parent, "policy.md")
	got, relevant := w.handleFsEvent(fsnotify.Event{Name: path, Op: fsnotify.Remove})
	assert.True(t, relevant)
	assert.Equal(t, path, got)
}

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
	notify  chan struct{}
}

func newBatchRecorder() *batchRecorder {
	return &batchRecorder{notify: make(chan struct{}, 10)}
}

func (r *batchRecorder) handle(_ context.Context, paths []string) {
	r.mu.Lock()
	r.batches = append(r.batches, paths)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *batchRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func TestWatcher_Run(t *testing.T) {
	t.Run("debounces a burst into one sorted batch", func(t *testing.T) {
		dir := t.TempDir()
		rec := newBatchRecorder()
		w := NewWatcher(dir, 200*time.Millisecond, rec.handle)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()

		// Give the watcher time to register the directory.
		time.Sleep(100 * time.Millisecond)
		writeFiles(t, dir, map[string]string{"b.md": "two"})
		writeFiles(t, dir, map[string]string{"a.txt": "one"})
		writeFiles(t, dir, map[string]string{"b.md": "two again", "ignored.xlsx": "x"})

		select {
		case <-rec.notify:
		case <-time.After(3 * time.Second):
			t.Fatal("timeout waiting for change batch")
		}

		batches := rec.snapshot()
		require.Len(t, batches, 1)
		assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.md")}, batches[0])

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not stop after cancel")
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		w := NewWatcher(filepath.Join(t.TempDir(), "absent"), 0, nil)
		err := w.Run(context.Background())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("not a directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "policy.md")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

		err := NewWatcher(file, 0, nil).Run(context.Background())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("closed watcher cannot run", func(t *testing.T) {
		w := NewWatcher(t.TempDir(), 0, nil)
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())

		assert.Error(t, w.Run(context.Background()))
	})

	t.Run("close stops a running watcher", func(t *testing.T) {
		w := NewWatcher(t.TempDir(), 0, nil)
		done := make(chan error, 1)
		go func() { done <- w.Run(context.Background()) }()

		time.Sleep(50 * time.Millisecond)
		require.NoError(t, w.Close())

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not stop after close")
		}
	})
}

func TestNewWatcher_DefaultDebounce(t *testing.T) {
	assert.Equal(t, DefaultDebounce, NewWatcher("dir", 0, nil).debounce)
	assert.Equal(t, DefaultDebounce, NewWatcher("dir", -time.Second, nil).debounce)
	assert.Equal(t, time.Second, NewWatcher("dir", time.Second, nil).debounce)
}
