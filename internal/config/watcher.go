package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nexhop/gateway/internal/observability"
)

// RoutesCallback is called with the new entries when the route
// configuration file changes and reloads successfully.
type RoutesCallback func([]RouteEntry)

// ErrorCallback is called when a reload attempt fails.
type ErrorCallback func(error)

// Watcher watches the route configuration file and triggers reloads.
// A failed reload keeps the previous entries in effect.
type Watcher struct {
	path          string
	watcher       *fsnotify.Watcher
	callback      RoutesCallback
	errorCallback ErrorCallback
	logger        observability.Logger
	debounceDelay time.Duration
	lastEntries   []RouteEntry
	mu            sync.RWMutex
	stopCh        chan struct{}
	stoppedCh     chan struct{}
	running       bool
}

// WatcherOption is a functional option for configuring the watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay for file changes.
func WithDebounceDelay(delay time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = delay
	}
}

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(logger observability.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithErrorCallback sets the error callback for the watcher.
func WithErrorCallback(callback ErrorCallback) WatcherOption {
	return func(w *Watcher) {
		w.errorCallback = callback
	}
}

// NewWatcher creates a new route configuration watcher.
func NewWatcher(path string, callback RoutesCallback, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:          absPath,
		watcher:       fsWatcher,
		callback:      callback,
		debounceDelay: 100 * time.Millisecond,
		logger:        observability.NopLogger(),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start begins watching the configuration file.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	entries, err := LoadRoutes(w.path)
	if err != nil {
		w.setStopped()
		return err
	}

	w.mu.Lock()
	w.lastEntries = entries
	w.mu.Unlock()

	// Watch the directory so atomic rename-based saves are seen.
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		w.setStopped()
		return err
	}

	w.logger.Info("started watching route configuration",
		observability.String("path", w.path),
	)

	go w.watch(ctx)

	return nil
}

// setStopped clears the running flag after a failed Start, before the
// watch goroutine exists. Stop must not block on stoppedCh in that
// case, and a later Start must be able to try again.
func (w *Watcher) setStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// Stop stops watching the configuration file.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh

	return w.watcher.Close()
}

// LastEntries returns the last successfully loaded route entries.
func (w *Watcher) LastEntries() []RouteEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastEntries
}

// watch is the main watch loop.
func (w *Watcher) watch(ctx context.Context) {
	defer close(w.stoppedCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("route watcher stopped due to context cancellation")
			return

		case <-w.stopCh:
			w.logger.Info("route watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			debounceTimer, debounceCh = w.handleFileEvent(event, debounceTimer, debounceCh)

		case <-debounceCh:
			debounceCh = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.handleWatchError(err)
		}
	}
}

// handleFileEvent processes a file system event and returns the
// updated debounce timer.
func (w *Watcher) handleFileEvent(
	event fsnotify.Event,
	debounceTimer *time.Timer,
	debounceCh <-chan time.Time,
) (timer *time.Timer, ch <-chan time.Time) {
	if filepath.Clean(event.Name) != w.path {
		return debounceTimer, debounceCh
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return debounceTimer, debounceCh
	}

	w.logger.Debug("route config file changed",
		observability.String("path", event.Name),
		observability.String("op", event.Op.String()),
	)

	if debounceTimer != nil {
		debounceTimer.Stop()
	}
	debounceTimer = time.NewTimer(w.debounceDelay)
	return debounceTimer, debounceTimer.C
}

// handleWatchError handles watcher errors.
func (w *Watcher) handleWatchError(err error) {
	w.logger.Error("route watcher error",
		observability.Error(err),
	)
	if w.errorCallback != nil {
		w.errorCallback(err)
	}
}

// reload attempts to reload the route entries.
func (w *Watcher) reload() {
	entries, err := LoadRoutes(w.path)
	if err != nil {
		w.logger.Error("route reload failed, keeping previous routes",
			observability.String("path", w.path),
			observability.Error(err),
		)
		if w.errorCallback != nil {
			w.errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	w.lastEntries = entries
	w.mu.Unlock()

	w.logger.Info("route configuration reloaded",
		observability.String("path", w.path),
		observability.Int("routes", len(entries)),
	)

	if w.callback != nil {
		w.callback(entries)
	}
}
