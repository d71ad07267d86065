package policy

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// eventChannelBuffer sizes the watch event channel.
const eventChannelBuffer = 64

// WatchEvent signals that governance, standards, or persona files under
// the project root changed.
type WatchEvent struct {
	// Paths lists the files that changed within one debounce window.
	Paths []string
}

// Watcher watches a project's governance directories and emits debounced
// change events. The resolver itself re-reads files on every call, so the
// watcher exists for long-running callers (check --watch, chat adapters)
// that want to react when policies change.
type Watcher struct {
	root     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]bool

	events chan WatchEvent
}

// watchedDirs are the config subdirectories observed under the root.
var watchedDirs = []string{governanceDir, standardsDir, "personas"}

// NewWatcher creates a watcher over the given project root.
func NewWatcher(root string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		root:     root,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]bool),
		events:   make(chan WatchEvent, eventChannelBuffer),
	}, nil
}

// Events returns the channel of debounced change events. It is closed
// when the watcher stops.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start begins watching. It returns after registering watches; events are
// delivered until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	watching := 0
	for _, dir := range watchedDirs {
		abs := filepath.Join(w.root, dir)
		if err := w.addRecursive(abs); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		watching++
	}

	go w.run(ctx)

	w.logger.Info("Governance watcher started",
		"root", w.root,
		"dirs", watching,
		"debounce", w.debounce)
	return nil
}

// Stop closes the underlying watcher; the events channel closes once the
// run loop drains.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && base != "." {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.events)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isYAML(ev.Name) {
				// New subdirectories need a watch of their own.
				if ev.Op.Has(fsnotify.Create) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						_ = w.addRecursive(ev.Name)
					}
				}
				continue
			}
			w.pendingMu.Lock()
			w.pending[ev.Name] = true
			w.pendingMu.Unlock()
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "error", err)

		case <-timer.C:
			w.flush()
		}
	}
}

// flush emits the pending file set as one event.
func (w *Watcher) flush() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	select {
	case w.events <- WatchEvent{Paths: paths}:
	default:
		w.logger.Warn("Watch event dropped, channel full", "paths", len(paths))
	}
}

func isYAML(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
