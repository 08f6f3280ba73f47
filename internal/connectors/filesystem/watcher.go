package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/riskpilot/internal/logger"
)

// DefaultDebounce is how long the watcher waits for more changes before
// reporting a batch.
const DefaultDebounce = 500 * time.Millisecond

// ChangeHandler receives the paths changed during one debounce window,
// sorted. It runs on the watcher goroutine, so batches never overlap.
type ChangeHandler func(ctx context.Context, paths []string)

// Watcher reports changes to corpus documents in a directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	handler  ChangeHandler

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// NewWatcher creates a watcher for dir. A non-positive debounce uses DefaultDebounce.
func NewWatcher(dir string, debounce time.Duration, handler ChangeHandler) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{dir: dir, debounce: debounce, handler: handler}
}

// Run watches until ctx is done or the watcher is closed. Changes still
// pending when ctx is done are dropped.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := w.start()
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Info("watching %s for changes", w.dir)

	pending := make(map[string]struct{})
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			path, relevant := w.handleFsEvent(event)
			if !relevant {
				continue
			}
			pending[path] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})

			logger.Debug("corpus changed: %v", paths)
			if w.handler != nil {
				w.handler(ctx, paths)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch %s: %v", w.dir, err)
		}
	}
}

func (w *Watcher) start() (*fsnotify.Watcher, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, errors.New("watcher is closed")
	}
	if w.watcher != nil {
		return nil, errors.New("watcher is already running")
	}

	if err := checkDir(w.dir); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.watcher = fw
	return fw, nil
}

// handleFsEvent returns the document path an event affects, if any.
// Hidden files, unsupported types, directories and chmod-only events are ignored.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	if isHidden(filepath.Base(event.Name)) || !IsSupported(event.Name) {
		return "", false
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return "", false
		}
	}
	return event.Name, true
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
