package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/conduit-lang/gallery/internal/fsutil"
)

// Op classifies a filesystem event
type Op int

const (
	// OpCreate is a new file or directory
	OpCreate Op = iota
	// OpChange is a content write to an existing file
	OpChange
	// OpRemove covers removal and the old name of a rename
	OpRemove
)

// String returns the event kind name
func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpChange:
		return "change"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is one (kind, absolute path) pair delivered by a Watcher
type Event struct {
	Op   Op
	Path string
}

// DefaultIgnorePatterns are editor and OS artifacts that never describe demos
var DefaultIgnorePatterns = []string{
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/.git/**",
	"**/node_modules/**",
}

// Watcher delivers events for a directory tree. The root may not exist yet;
// its parent is watched until it appears.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	ignored  []string
	events   chan Event
	logger   *zap.Logger
	watched  map[string]bool
	mutex    sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for root. Paths matching an ignore pattern
// (doublestar syntax, relative to root) are dropped.
func NewWatcher(root string, ignored []string, logger *zap.Logger) (*Watcher, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("watch root must be absolute: %s", root)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	for _, pattern := range ignored {
		if !doublestar.ValidatePattern(pattern) {
			watcher.Close()
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	return &Watcher{
		watcher:  watcher,
		root:     filepath.Clean(root),
		ignored:  ignored,
		events:   make(chan Event, 256),
		logger:   logger,
		watched:  make(map[string]bool),
		stopChan: make(chan struct{}),
	}, nil
}

// Events returns the event stream. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Root returns the watched directory
func (w *Watcher) Root() string {
	return w.root
}

// Start registers the watch and begins delivering events
func (w *Watcher) Start() error {
	if _, err := os.Stat(w.root); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat %s: %w", w.root, err)
		}
		parent := filepath.Dir(w.root)
		if err := w.add(parent); err != nil {
			return err
		}
		w.logger.Info("waiting for directory to appear", zap.String("dir", w.root))
	} else if err := w.addTree(w.root); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.watch()

	return nil
}

// Stop stops the watcher and closes the event stream
func (w *Watcher) Stop() error {
	select {
	case <-w.stopChan:
		return nil
	default:
		close(w.stopChan)
	}

	err := w.watcher.Close()
	w.wg.Wait()
	close(w.events)
	return err
}

func (w *Watcher) watch() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if path != w.root && !w.inRoot(path) {
		// Sibling of the root inside the watched parent
		return
	}
	if w.shouldIgnore(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("dir", path), zap.Error(err))
			}
		}
		w.emit(OpCreate, path)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.forget(path)
		w.emit(OpRemove, path)
		if path == w.root {
			w.awaitRoot()
		}
	case event.Has(fsnotify.Write):
		w.emit(OpChange, path)
	default:
		// Chmod only
	}
}

func (w *Watcher) emit(op Op, path string) {
	w.logger.Debug("file event", zap.Stringer("op", op), zap.String("path", path))

	select {
	case w.events <- Event{Op: op, Path: path}:
	case <-w.stopChan:
	}
}

// awaitRoot watches the parent of a removed root so that recreating the
// root is reported.
func (w *Watcher) awaitRoot() {
	if err := w.add(filepath.Dir(w.root)); err != nil {
		w.logger.Warn("failed to watch parent of removed directory", zap.String("dir", w.root), zap.Error(err))
		return
	}
	w.logger.Info("waiting for directory to appear", zap.String("dir", w.root))

	// Recreated before the parent watch was in place
	if fsutil.IsDirectory(w.root) && !w.isWatched(w.root) {
		if err := w.addTree(w.root); err != nil {
			w.logger.Warn("failed to watch new directory", zap.String("dir", w.root), zap.Error(err))
			return
		}
		w.emit(OpCreate, w.root)
	}
}

func (w *Watcher) inRoot(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}

func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.ignored {
		if match, _ := doublestar.Match(pattern, rel); match {
			return true
		}
	}
	return false
}

// addTree watches dir and every directory below it
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		return w.add(path)
	})
}

func (w *Watcher) add(dir string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.watched[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	w.watched[dir] = true
	w.logger.Debug("watching directory", zap.String("dir", dir))
	return nil
}

func (w *Watcher) forget(path string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	// fsnotify drops removed directories itself
	for dir := range w.watched {
		if within, _ := fsutil.IsWithin(path, dir); within {
			delete(w.watched, dir)
		}
	}
}

func (w *Watcher) isWatched(dir string) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.watched[dir]
}
