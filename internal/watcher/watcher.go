// Package watcher reloads the daemon when the config file changes on disk.
package watcher

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// Watcher watches the config file and emits a signal after edits settle.
// The parent directory is watched rather than the file itself: atomic
// writes (write tmp then rename to target) replace the inode, which would
// silently drop a file-level watch.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	configPath string
	logger     *slog.Logger
	changed    chan struct{}
	done       chan struct{}

	debounceMu sync.Mutex
	debounce   *time.Timer
}

// New creates a watcher for the given config file path.
func New(configPath string, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		fsWatcher:  fsWatcher,
		configPath: configPath,
		logger:     logger,
		changed:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}, nil
}

// Changed returns the channel signalled after the config file settles.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Start begins watching. The config file itself may not exist yet; its
// directory must.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(filepath.Dir(w.configPath)); err != nil {
		return err
	}
	go w.processEvents()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.fsWatcher.Close()
}

func (w *Watcher) processEvents() {
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
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
		return
	}
	// Rename covers atomic write-then-rename saves used by most editors.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.debounceChange()
}

// debounceChange collapses the burst of events one save produces into a
// single signal.
func (w *Watcher) debounceChange() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.logger.Debug("config file changed", "path", w.configPath)
		select {
		case w.changed <- struct{}{}:
		default:
		}
	})
}
