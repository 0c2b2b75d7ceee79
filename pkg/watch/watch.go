// Package watch reloads the site when its inputs change on disk.
//
// A Watcher observes the catalog file, the content override directory and
// the asset directory. Bursts of events are collapsed into one Change
// after a quiet period, and every registered callback runs once per Change.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/gandtscales/scalesite/pkg/catalog"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 200 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the watcher waits after the last event before
	// dispatching a Change. Default: 200ms.
	Debounce time.Duration

	// Ignore lists doublestar patterns matched against paths relative to
	// the watched directory, e.g. "**/*.swp".
	Ignore []string

	// IgnoreDirs are skipped entirely, typically the export output.
	IgnoreDirs []string

	// Logger for watcher messages. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Change is one debounced batch of modified paths.
type Change struct {
	Paths []string
	At    time.Time
}

// Stats reports watcher activity.
type Stats struct {
	Watched   int
	Events    int64
	Changes   int64
	IsRunning bool
}

// Watcher dispatches debounced file changes to callbacks.
//
// Usage:
//
//	w, err := watch.New(opts)
//	w.AddFile(catalogPath)
//	w.AddDir(assetDir)
//	w.OnChange(func(ch watch.Change) { ... })
//	w.Start()
//	defer w.Stop()
//
// Callbacks run one at a time on the watcher goroutine and must not call Stop.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	options Options

	mu        sync.Mutex
	roots     []string
	files     map[string]bool
	callbacks []func(Change)
	started   bool
	stopped   bool

	stopChan chan struct{}
	wg       sync.WaitGroup

	events  atomic.Int64
	changes atomic.Int64
}

// New creates a Watcher. Nothing is observed until AddFile or AddDir.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern: %s", pattern)
		}
	}
	for i, dir := range opts.IgnoreDirs {
		if abs, err := filepath.Abs(dir); err == nil {
			opts.IgnoreDirs[i] = abs
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		logger:   opts.Logger,
		options:  opts,
		files:    make(map[string]bool),
		stopChan: make(chan struct{}),
	}, nil
}

// OnChange registers fn to run after every debounced Change.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// AddFile watches a single file. Its directory is watched so that editors
// which save by renaming a temp file over the original are still seen.
func (w *Watcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w.mu.Lock()
	w.files[abs] = true
	w.mu.Unlock()

	w.logger.Debug("Watching file", "path", abs)
	return nil
}

// AddDir watches dir and every subdirectory not ignored.
func (w *Watcher) AddDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("failed to watch %s: not a directory", dir)
	}

	w.mu.Lock()
	w.roots = append(w.roots, abs)
	w.mu.Unlock()

	if err := w.addTree(abs); err != nil {
		return err
	}
	w.logger.Debug("Watching directory", "path", abs)
	return nil
}

func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to setup watches: %w", err)
	}
	return nil
}

// Start begins dispatching events in the background.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return errors.New("watcher already stopped")
	}
	if w.started {
		return errors.New("watcher already started")
	}
	w.started = true

	w.wg.Add(1)
	go w.eventLoop()

	w.logger.Info("File watcher started",
		"files", len(w.files),
		"dirs", len(w.roots),
		"debounce_ms", w.options.Debounce.Milliseconds())
	return nil
}

// Stop stops the watcher and waits for a running callback to return.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopChan)
	err := w.watcher.Close()
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("File watcher stopped")
	return err
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.handleEvent(event) {
				continue
			}
			pending[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.options.Debounce)
			} else {
				timer.Reset(w.options.Debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", "error", err)

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]bool)
			w.dispatch(Change{Paths: paths, At: time.Now()})
		}
	}
}

// handleEvent reports whether event should trigger a Change. New
// directories under a watched root are added to the watch list.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if !w.relevant(event.Name) || w.shouldIgnore(event.Name) {
		return false
	}

	w.events.Add(1)
	w.logger.Debug("File event", "op", event.Op.String(), "path", event.Name)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}
	return true
}

func (w *Watcher) dispatch(ch Change) {
	w.mu.Lock()
	callbacks := append([]func(Change){}, w.callbacks...)
	w.mu.Unlock()

	n := w.changes.Add(1)
	w.logger.Info("Change detected", "paths", len(ch.Paths), "change", n)

	for _, fn := range callbacks {
		fn(ch)
	}
}

// relevant reports whether path is a watched file or lies under a watched
// directory.
func (w *Watcher) relevant(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[path] {
		return true
	}
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldIgnore(path string) bool {
	for _, dir := range w.options.IgnoreDirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	rel := filepath.ToSlash(w.relative(path))
	for _, pattern := range w.options.Ignore {
		if m, _ := doublestar.Match(pattern, rel); m {
			return true
		}
	}
	return false
}

// relative returns path relative to the watched directory containing it,
// or its base name for single watched files.
func (w *Watcher) relative(path string) string {
	w.mu.Lock()
	roots := w.roots
	w.mu.Unlock()

	for _, root := range roots {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return filepath.Base(path)
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	running := w.started && !w.stopped
	w.mu.Unlock()

	return Stats{
		Watched:   len(w.watcher.WatchList()),
		Events:    w.events.Load(),
		Changes:   w.changes.Load(),
		IsRunning: running,
	}
}

// ReloadOnChange registers a callback that reloads the catalog with load
// and hands the result to each sink in order. A catalog that fails to load
// or validate is logged and skipped, so a half-saved file never replaces
// the version being served.
func (w *Watcher) ReloadOnChange(load func() (*catalog.QueryService, error), sinks ...func(*catalog.QueryService) error) {
	w.OnChange(func(ch Change) {
		start := time.Now()
		qs, err := load()
		if err != nil {
			w.logger.Error("Failed to reload catalog, keeping previous version", "error", err)
			return
		}
		for _, sink := range sinks {
			if err := sink(qs); err != nil {
				w.logger.Error("Reload step failed", "error", err)
				return
			}
		}
		w.logger.Info("Reloaded",
			"products", len(qs.ListProducts()),
			"duration_ms", time.Since(start).Milliseconds())
	})
}
