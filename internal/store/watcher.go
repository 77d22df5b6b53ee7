package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls Store.Sync when another process writes the database.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	ctx      context.Context
	cancel   context.CancelFunc
	errChan  chan error
	debounce time.Duration
}

// NewWatcher returns a Watcher for s. Call Start to begin watching.
func NewWatcher(s *Store) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		store:    s,
		ctx:      ctx,
		cancel:   cancel,
		errChan:  make(chan error, 1),
		debounce: 50 * time.Millisecond,
	}
}

// Start watches the database directory. Subscribers of the store are
// invoked on the watcher's goroutine.
func (w *Watcher) Start() error {
	if w.store.path == "" || w.store.path == ":memory:" {
		return fmt.Errorf("watch %q: not a database file", w.store.path)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.store.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	w.watcher = watcher

	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	base := filepath.Base(w.store.path)
	var timer *time.Timer

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if name != base && name != base+"-wal" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.sync)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) sync() {
	if w.ctx.Err() != nil {
		return
	}
	if _, err := w.store.Sync(); err != nil {
		w.report(fmt.Errorf("sync settings: %w", err))
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errChan <- err:
	default:
	}
}

// Errors returns a channel for receiving errors that occur during watching.
func (w *Watcher) Errors() <-chan error {
	return w.errChan
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
