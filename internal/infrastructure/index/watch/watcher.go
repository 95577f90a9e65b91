package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc reloads one snapshot from disk.
type ReloadFunc func() error

// Watcher reloads index snapshots in the API process when the rebuild worker
// publishes a new file. It watches the directory rather than the files:
// snapshots are replaced by rename, and a watch on the old inode would go
// stale after the first rebuild.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	reloads map[string]ReloadFunc
	timers  map[string]*time.Timer
}

func New(dir string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create snapshot watcher: %w", err)
	}
	return &Watcher{
		dir:      dir,
		watcher:  fsWatcher,
		debounce: 200 * time.Millisecond,
		reloads:  make(map[string]ReloadFunc),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// OnSnapshot registers a reload callback for one snapshot file name inside
// the watched directory. Must be called before Run.
func (w *Watcher) OnSnapshot(filename string, fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reloads[filename] = fn
}

// Run blocks until ctx is canceled, reloading registered snapshots as they
// change. Rapid event bursts for the same file collapse into one reload.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload(filepath.Base(event.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("snapshot_watch_error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) scheduleReload(filename string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	reload, ok := w.reloads[filename]
	if !ok {
		return
	}

	if timer, ok := w.timers[filename]; ok {
		timer.Stop()
	}
	w.timers[filename] = time.AfterFunc(w.debounce, func() {
		if err := reload(); err != nil {
			slog.Error("snapshot_reload_failed", "file", filename, "error", err)
			return
		}
		slog.Info("snapshot_reloaded", "file", filename)
	})
}
