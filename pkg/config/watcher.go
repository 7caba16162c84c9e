package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/compozy/tally/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

// Watcher notifies callbacks when watched configuration files change.
//
// Files are watched through their parent directory so that editors which
// replace a file on save, and files created after Watch, are still seen.
type Watcher struct {
	watcher   *fsnotify.Watcher
	callbacks []func()
	mu        sync.RWMutex
	watched   map[string]context.Context // absolute file path -> its watch context
	dirs      map[string]int             // watched directory -> number of files in it
	log       logger.Logger
	stopCh    chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewWatcher creates a new configuration file watcher.
func NewWatcher() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher:   fsWatcher,
		callbacks: make([]func(), 0),
		watched:   make(map[string]context.Context),
		dirs:      make(map[string]int),
		log:       logger.GetDefault(),
		stopCh:    make(chan struct{}),
	}, nil
}

// Watch starts watching path until ctx is canceled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	dir := filepath.Dir(absPath)
	w.mu.Lock()
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			w.mu.Unlock()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}
	if _, already := w.watched[absPath]; !already {
		w.dirs[dir]++
	}
	w.watched[absPath] = ctx
	w.log = logger.FromContext(ctx)
	w.mu.Unlock()

	if done := ctx.Done(); done != nil {
		go w.unwatchOnDone(absPath, done)
	}
	w.startOnce.Do(func() {
		go w.handleEvents()
	})
	return nil
}

func (w *Watcher) unwatchOnDone(absPath string, done <-chan struct{}) {
	select {
	case <-done:
	case <-w.stopCh:
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watched[absPath]; !ok {
		return
	}
	delete(w.watched, absPath)
	dir := filepath.Dir(absPath)
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return
	}
	delete(w.dirs, dir)
	if err := w.watcher.Remove(dir); err != nil {
		w.log.Debug("failed to stop watching directory", "dir", dir, "error", err)
	}
}

// OnChange registers a callback to be invoked when a watched file changes.
func (w *Watcher) OnChange(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

func (w *Watcher) handleEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.RLock()
			pathCtx, watched := w.watched[filepath.Clean(event.Name)]
			w.mu.RUnlock()
			if !watched || (pathCtx != nil && pathCtx.Err() != nil) {
				continue
			}
			w.notifyCallbacks()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.RLock()
			log := w.log
			w.mu.RUnlock()
			log.Error("configuration watcher error", "error", err)
		}
	}
}

func (w *Watcher) notifyCallbacks() {
	w.mu.RLock()
	callbacks := make([]func(), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()
	for _, callback := range callbacks {
		if callback != nil {
			callback()
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var closeErr error
	w.closeOnce.Do(func() {
		close(w.stopCh)
		if err := w.watcher.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close watcher: %w", err)
		}
	})
	return closeErr
}
