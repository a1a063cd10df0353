package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zheng/ctb/internal/graph"
)

// Watcher watches a trace file and swaps a freshly built graph into a Handle
// when its content changes.
type Watcher struct {
	tracePath string
	opts      graph.LoadOptions
	handle    *graph.Handle
	fsWatcher *fsnotify.Watcher

	// Debouncing
	debounceDelay time.Duration
	pending       bool
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// Serializes reloads
	reloadMu sync.Mutex

	// Callbacks
	onReloadStart func()
	onReloadDone  func(stats graph.Stats, duration time.Duration)
	onError       func(error)

	// Control
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures the watcher
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithLoadOptions sets the options used to rebuild the graph
func WithLoadOptions(opts graph.LoadOptions) WatcherOption {
	return func(w *Watcher) {
		w.opts = opts
	}
}

// WithOnReloadStart sets the callback for when a reload starts
func WithOnReloadStart(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onReloadStart = fn
	}
}

// WithOnReloadDone sets the callback for when a changed graph was swapped in
func WithOnReloadDone(fn func(stats graph.Stats, duration time.Duration)) WatcherOption {
	return func(w *Watcher) {
		w.onReloadDone = fn
	}
}

// WithOnError sets the callback for errors
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a new Watcher for tracePath. The directory is watched rather
// than the file so that editors and tools replacing the file are noticed.
func New(tracePath string, handle *graph.Handle, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(tracePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", tracePath, err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		tracePath:     abs,
		opts:          graph.DefaultLoadOptions(),
		handle:        handle,
		fsWatcher:     fsWatcher,
		debounceDelay: 500 * time.Millisecond, // Default debounce
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return w, nil
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.pendingMu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.pendingMu.Unlock()
		err = w.fsWatcher.Close()
	})
	return err
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("watcher.start", "file", w.tracePath, "debounce", w.debounceDelay)
	w.Start()
	<-ctx.Done()
	return w.Stop()
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.tracePath {
		return
	}

	// Removal alone is ignored; the old graph stays until a new file appears.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	slog.Debug("watcher.event", "file", event.Name, "op", event.Op.String())

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	w.pending = true

	// Reset debounce timer
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.triggerReload)
}

// triggerReload runs the reload after debounce
func (w *Watcher) triggerReload() {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if !pending {
		return
	}
	if _, err := w.Reload(); err != nil && w.onError != nil {
		w.onError(err)
	}
}

// Reload rebuilds the graph from the trace file. The new graph replaces the
// current one only if the file content changed; it reports whether it did.
// On error the current graph is kept.
func (w *Watcher) Reload() (bool, error) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	if w.onReloadStart != nil {
		w.onReloadStart()
	}

	startTime := time.Now()
	store, err := graph.Load(w.tracePath, w.opts)
	if err != nil {
		return false, fmt.Errorf("reload failed: %w", err)
	}

	if cur := w.handle.Store(); cur != nil && cur.Source().Checksum == store.Source().Checksum {
		slog.Debug("watcher.unchanged", "file", w.tracePath)
		return false, nil
	}

	w.handle.Replace(store)
	duration := time.Since(startTime)
	stats := store.Stats()
	slog.Info("watcher.reload",
		"file", w.tracePath,
		"classes", stats.Classes,
		"edges", stats.Edges,
		"elapsed", duration.Round(time.Millisecond),
	)

	if w.onReloadDone != nil {
		w.onReloadDone(stats, duration)
	}
	return true, nil
}
