// Package watcher implements the file watcher: fsnotify events filtered
// through the ignore policy and the supported-extension set, recording
// each accepted path's last-event timestamp and firing invalidation
// callbacks for modify/delete. A move is treated as delete(src) +
// create(dst). The watcher deliberately does no analysis of its own;
// re-analysis belongs to the graph updater, driven by ProcessPending.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/relctx/relctx/internal/ignore"
)

// EventKind enumerates the accepted event kinds.
type EventKind string

const (
	EventCreate EventKind = "create"
	EventModify EventKind = "modify"
	EventDelete EventKind = "delete"
)

// Event is a filtered, accepted filesystem change.
type Event struct {
	Kind EventKind
	Path string
}

// InvalidationCallback is invoked for modify and delete events, typically
// to drop a cache entry for Path.
type InvalidationCallback func(path string)

// Watcher wraps fsnotify with ignore-policy filtering and per-path
// timestamp bookkeeping.
type Watcher struct {
	fsw    *fsnotify.Watcher
	policy *ignore.Policy
	root   string

	mu        sync.RWMutex
	timestamps map[string]time.Time

	callbacksMu sync.Mutex
	callbacks   []InvalidationCallback
}

// New creates a Watcher rooted at root, filtering through policy.
func New(root string, policy *ignore.Policy) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	return &Watcher{
		fsw:        fsw,
		policy:     policy,
		root:       root,
		timestamps: make(map[string]time.Time),
	}, nil
}

// RegisterInvalidationCallback adds cb to the set invoked on modify and
// delete events.
func (w *Watcher) RegisterInvalidationCallback(cb InvalidationCallback) {
	w.callbacksMu.Lock()
	defer w.callbacksMu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start recursively registers every non-ignored directory under the
// watcher's root and begins dispatching events until ctx is cancelled.
// Events are delivered on the returned channel.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	if err := w.addDirectory(w.root); err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}

	out := make(chan Event, 256)
	go w.run(ctx, out)
	return out, nil
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) addDirectory(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && w.policy.ShouldIgnore(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context, out chan<- Event) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev, out)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, out chan<- Event) {
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		// Directory events are dropped, but a freshly created directory
		// still needs its own watch registered so files appearing inside
		// it are seen.
		if ev.Op&fsnotify.Create != 0 && !w.policy.ShouldIgnore(ev.Name) {
			_ = w.addDirectory(ev.Name)
		}
		return
	}
	if w.policy.ShouldIgnore(ev.Name) || !ignore.IsSupportedFile(ev.Name) {
		return
	}

	switch {
	case ev.Op&fsnotify.Rename != 0:
		// Treated as delete(src) + create(dest); fsnotify reports the
		// rename on the source path only, the create arrives separately
		// as its own Create event for the destination.
		w.accept(EventDelete, ev.Name, true, out)
	case ev.Op&fsnotify.Remove != 0:
		w.accept(EventDelete, ev.Name, true, out)
	case ev.Op&fsnotify.Create != 0:
		w.accept(EventCreate, ev.Name, false, out)
	case ev.Op&fsnotify.Write != 0:
		w.accept(EventModify, ev.Name, true, out)
	}
}

func (w *Watcher) accept(kind EventKind, path string, invalidate bool, out chan<- Event) {
	w.mu.Lock()
	w.timestamps[path] = time.Now()
	w.mu.Unlock()

	if invalidate {
		w.notifyInvalidation(path)
	}

	select {
	case out <- Event{Kind: kind, Path: path}:
	default:
	}
}

func (w *Watcher) notifyInvalidation(path string) {
	w.callbacksMu.Lock()
	cbs := append([]InvalidationCallback(nil), w.callbacks...)
	w.callbacksMu.Unlock()

	for _, cb := range cbs {
		func() {
			defer func() { recover() }()
			cb(path)
		}()
	}
}

// LastEventTime returns the last recorded event time for path, if any.
func (w *Watcher) LastEventTime(path string) (time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ts, ok := w.timestamps[path]
	return ts, ok
}

// DrainTimestamps returns and clears every recorded timestamp, for the
// graph updater's ProcessPending.
func (w *Watcher) DrainTimestamps() map[string]time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.timestamps
	w.timestamps = make(map[string]time.Time)
	return out
}
