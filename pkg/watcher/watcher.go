package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xmhha/when-changed/pkg/logger"
	"github.com/0xmhha/when-changed/pkg/registry"
)

// watcher implements the Watcher interface using fsnotify.
type watcher struct {
	fsw    *fsnotify.Watcher
	logger logger.Logger
	config Config

	events chan Event
	errors chan error

	mu       sync.RWMutex
	running  bool
	closed   bool
	stopChan chan struct{}

	// Recursive roots, for picking up directories created while
	// watching.
	recursiveRoots []string

	// Debouncing state.
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// coalesceCreateWrite drops create events for regular files
	// because the backend synthesizes a modified event right after.
	// Capability of the concrete backend: true for inotify.
	coalesceCreateWrite bool
}

// New creates a new file system watcher.
//
// Parameters:
//   - cfg: Watcher configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Watcher
//   - Error if the fsnotify backend cannot be created
func New(cfg Config, log logger.Logger) (Watcher, error) {
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 100 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &watcher{
		fsw:                 fsw,
		logger:              log,
		config:              cfg,
		events:              make(chan Event, 100),
		errors:              make(chan error, 10),
		stopChan:            make(chan struct{}),
		debounceTimers:      make(map[string]*time.Timer),
		coalesceCreateWrite: runtime.GOOS == "linux",
	}

	log.Debug("file watcher created",
		"debounce_interval", cfg.DebounceInterval,
		"coalesce_create_write", w.coalesceCreateWrite)

	return w, nil
}

// Start implements Watcher.Start.
func (w *watcher) Start(ctx context.Context, specs []registry.Spec) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.running = true
	w.mu.Unlock()

	subscribed := 0
	for _, spec := range specs {
		if err := w.subscribe(spec); err != nil {
			// One bad target does not stop the others.
			w.logger.Warn("dropping watch target",
				"path", spec.Path,
				"error", err)
			w.reportError(fmt.Errorf("%w: %s: %v", ErrSubscription, spec.Path, err))
			continue
		}
		subscribed++
	}

	if subscribed == 0 {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return ErrNoSubscriptions
	}

	w.logger.Info("watcher started",
		"subscriptions", subscribed,
		"requested", len(specs))

	go w.processEvents(ctx)

	return nil
}

// subscribe adds one subscription, walking subdirectories when the
// spec is recursive.
func (w *watcher) subscribe(spec registry.Spec) error {
	if err := w.fsw.Add(spec.Path); err != nil {
		return err
	}
	w.logger.Debug("added watch path", "path", spec.Path, "recursive", spec.Recursive)

	if !spec.Recursive {
		return nil
	}

	w.mu.Lock()
	w.recursiveRoots = append(w.recursiveRoots, spec.Path)
	w.mu.Unlock()

	return filepath.Walk(spec.Path, func(subPath string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn("error walking path",
				"path", subPath,
				"error", err)
			return nil // Skip but continue walking.
		}
		if !info.IsDir() || subPath == spec.Path {
			return nil
		}
		if addErr := w.fsw.Add(subPath); addErr != nil {
			w.logger.Warn("failed to add subdirectory",
				"path", subPath,
				"error", addErr)
			return nil
		}
		w.logger.Debug("added watch subdirectory", "path", subPath)
		return nil
	})
}

// Stop implements Watcher.Stop.
func (w *watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if !w.running {
		return ErrNotStarted
	}

	close(w.stopChan)
	w.running = false

	w.logger.Info("watcher stopped")
	return nil
}

// Events implements Watcher.Events.
func (w *watcher) Events() <-chan Event {
	return w.events
}

// Errors implements Watcher.Errors.
func (w *watcher) Errors() <-chan error {
	return w.errors
}

// Close implements Watcher.Close.
func (w *watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	if w.running {
		close(w.stopChan)
		w.running = false
	}

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		timer.Stop()
	}
	w.debounceTimers = nil
	w.debounceMu.Unlock()

	// The event and error channels stay open: a debounce goroutine
	// mid-send exits through stopChan, and consumers terminate on
	// their own context rather than on channel close.

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("failed to close fsnotify watcher", "error", err)
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Debug("watcher closed")
	return nil
}

// processEvents translates raw fsnotify notifications until stopped.
func (w *watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("event processing stopped", "reason", "context cancelled")
			return

		case <-w.stopChan:
			w.logger.Debug("event processing stopped", "reason", "stop signal")
			return

		case raw, ok := <-w.fsw.Events:
			if !ok {
				w.logger.Warn("fsnotify events channel closed")
				return
			}
			w.handleRaw(raw)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.logger.Warn("fsnotify errors channel closed")
				return
			}
			w.reportError(err)
		}
	}
}

// handleRaw maps one fsnotify notification onto the session's event
// model and debounces it.
func (w *watcher) handleRaw(raw fsnotify.Event) {
	var kind Kind
	switch {
	case raw.Op&fsnotify.Create == fsnotify.Create:
		kind = KindCreated
	case raw.Op&fsnotify.Write == fsnotify.Write:
		kind = KindModified
	case raw.Op&fsnotify.Rename == fsnotify.Rename:
		kind = KindMoved
	case raw.Op&fsnotify.Remove == fsnotify.Remove:
		kind = KindDeleted
	default:
		// Chmod and unknown ops are not interesting changes.
		w.logger.Debug("ignoring fsnotify operation",
			"op", raw.Op,
			"path", raw.Name)
		return
	}

	isDir := false
	if kind == KindCreated || kind == KindModified {
		if info, err := os.Lstat(raw.Name); err == nil {
			isDir = info.IsDir()
		}
	}

	if kind == KindCreated {
		if isDir {
			w.pickupDirectory(raw.Name)
		} else if w.coalesceCreateWrite {
			// inotify follows every file creation with a modified
			// notification; deliver that one instead.
			w.logger.Debug("coalescing create into pending write",
				"path", raw.Name)
			return
		}
	}

	w.debounceEvent(Event{
		Kind:      kind,
		Path:      raw.Name,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

// pickupDirectory subscribes to a directory created under a recursive
// root while the session is running.
func (w *watcher) pickupDirectory(path string) {
	w.mu.RLock()
	roots := w.recursiveRoots
	w.mu.RUnlock()

	for _, root := range roots {
		if !strings.HasPrefix(path, root+string(filepath.Separator)) {
			continue
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch new directory",
				"path", path,
				"error", err)
			return
		}
		w.logger.Debug("watching new directory", "path", path)
		return
	}
}

// debounceEvent coalesces rapid per-path event bursts.
func (w *watcher) debounceEvent(event Event) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimers == nil {
		// Closed while this event was in flight.
		return
	}

	if timer, exists := w.debounceTimers[event.Path]; exists {
		timer.Stop()
	}

	w.debounceTimers[event.Path] = time.AfterFunc(w.config.DebounceInterval, func() {
		w.debounceMu.Lock()
		if w.debounceTimers != nil {
			delete(w.debounceTimers, event.Path)
		}
		w.debounceMu.Unlock()

		w.mu.RLock()
		closed := w.closed
		w.mu.RUnlock()
		if closed {
			return
		}

		// No locks are held here. If the consumer stopped draining,
		// stopChan unblocks the send so Stop and Close always return.
		select {
		case w.events <- event:
		case <-w.stopChan:
		}
	})
}

// reportError delivers a non-fatal error without blocking.
func (w *watcher) reportError(err error) {
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("error channel full, dropping error", "error", err)
	}
}
