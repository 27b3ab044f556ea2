// Package watcher reports changed part files with per-file debouncing.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is how long a file must stay quiet before it is reported
const DefaultDebounce = 300 * time.Millisecond

// Handler is called with the absolute path of a changed file
type Handler func(path string)

// Watcher watches files and directories for part files being written
type Watcher struct {
	fs       *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	filter   func(path string) bool
	logger   zerolog.Logger

	mu     sync.Mutex
	files  map[string]bool // explicitly watched files
	dirs   map[string]bool // directories whose matching files are reported
	timers map[string]*time.Timer
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the quiet period
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithFilter limits which files in watched directories are reported
func WithFilter(filter func(path string) bool) Option {
	return func(w *Watcher) { w.filter = filter }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// New creates a watcher that calls handler for every debounced change
func New(handler Handler, opts ...Option) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fs:       fs,
		handler:  handler,
		debounce: DefaultDebounce,
		filter:   func(string) bool { return true },
		logger:   log.With().Str("component", "watcher").Logger(),
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Add watches files or directories. A file is watched through its parent
// directory so editors that replace the file on save are still seen.
func (w *Watcher) Add(paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", absPath, err)
		}

		dir := absPath
		if info.IsDir() {
			w.dirs[absPath] = true
		} else {
			w.files[absPath] = true
			dir = filepath.Dir(absPath)
		}
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return nil
}

// Run delivers changes until ctx ends or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.changed(event.Name)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) wanted(path string) bool {
	if w.files[path] {
		return true
	}
	return w.dirs[filepath.Dir(path)] && w.filter(path)
}

// changed restarts the debounce timer of path
func (w *Watcher) changed(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.wanted(path) {
		return
	}
	w.logger.Debug().Str("path", path).Msg("file changed")
	w.scheduleLocked(path)
}

// scheduleLocked replaces the timer of path. w.mu must be held.
func (w *Watcher) scheduleLocked(path string) {
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		// a timer that fired while being replaced must not drop its successor
		if w.timers[path] == timer {
			delete(w.timers, path)
		}
		w.mu.Unlock()
		w.handler(path)
	})
	w.timers[path] = timer
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopTimersLocked()
}

func (w *Watcher) stopTimersLocked() {
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
}
