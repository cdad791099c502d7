package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/vcnkl/settle/debounce"
	"github.com/vcnkl/settle/logger"
)

const DefaultDelay = 100 * time.Millisecond

var skipDirs = map[string]bool{
	".git":         true,
	".settle":      true,
	"node_modules": true,
	".venv":        true,
	"__pycache__":  true,
}

type Options struct {
	// Root anchors Ignore patterns and the .gitignore lookup.
	Root  string
	Paths []string
	// Ignore holds doublestar patterns relative to Root. A pattern that
	// matches a directory also ignores everything below it.
	Ignore    []string
	Gitignore bool
	Delay     time.Duration
	Observer  debounce.Observer
	Logger    logger.Logger
}

type Watcher struct {
	opts      Options
	fsw       *fsnotify.Watcher
	debouncer *debounce.Debouncer
	gitignore *ignore.GitIgnore
	log       logger.Logger
	ready     chan struct{}

	mu       sync.Mutex
	onChange func(paths []string)
	pending  map[string]struct{}

	stopOnce sync.Once
}

func New(opts Options) (*Watcher, error) {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if len(opts.Paths) == 0 {
		opts.Paths = []string{opts.Root}
	}

	debouncer, err := debounce.New(opts.Delay, debounce.WithObserver(opts.Observer))
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		opts:      opts,
		debouncer: debouncer,
		log:       opts.Logger,
		ready:     make(chan struct{}),
		pending:   make(map[string]struct{}),
	}

	if opts.Gitignore && opts.Root != "" {
		gi, err := ignore.CompileIgnoreFile(filepath.Join(opts.Root, ".gitignore"))
		switch {
		case err == nil:
			w.gitignore = gi
		case !os.IsNotExist(errors.Cause(err)):
			return nil, errors.Wrap(err, "failed to read .gitignore")
		}
	}

	w.fsw, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	return w, nil
}

// OnChange registers fn to receive the sorted set of paths that changed
// during one quiet window. fn runs on its own goroutine.
func (w *Watcher) OnChange(fn func(paths []string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Ready is closed once every path is registered with the OS watcher.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Start registers the watched paths and dispatches events until ctx ends or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	for _, path := range w.opts.Paths {
		if err := w.addRecursive(path); err != nil {
			return errors.Wrapf(err, "failed to watch path %s", path)
		}
	}
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", logger.Err(err))
		}
	}
}

// Stop drops any pending notification and releases the OS watcher. It is
// safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.debouncer.Dispose()
		w.fsw.Close()
	})
}

// Ignored reports whether events for path are dropped.
func (w *Watcher) Ignored(path string) bool {
	rel := path
	if w.opts.Root != "" {
		if r, err := filepath.Rel(w.opts.Root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return false
	}

	for _, part := range strings.Split(rel, "/") {
		if skipDirs[part] {
			return true
		}
	}

	for _, pattern := range w.opts.Ignore {
		pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/")+"/**", rel); ok {
			return true
		}
	}

	return w.gitignore != nil && w.gitignore.MatchesPath(rel)
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if w.Ignored(event.Name) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err = w.addRecursive(event.Name); err != nil {
				w.log.Debug("failed to watch new directory", logger.String("path", event.Name), logger.Err(err))
			}
		}
	}

	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.mu.Unlock()

	w.log.Debug("change", logger.String("path", event.Name), logger.String("op", event.Op.String()))

	err := w.debouncer.DebounceAsync(ctx, w.flush)
	if err != nil && !errors.Is(err, debounce.ErrDisposed) && ctx.Err() == nil {
		w.log.Warn("failed to schedule change notification", logger.Err(err))
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	fn := w.onChange
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if fn == nil || len(paths) == 0 {
		return
	}

	sort.Strings(paths)
	fn(paths)
}

func (w *Watcher) addRecursive(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.fsw.Add(root)
	}

	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && w.Ignored(path) {
			return fastwalk.SkipDir
		}

		if err = w.fsw.Add(path); err != nil {
			w.log.Debug("failed to watch directory", logger.String("path", path), logger.Err(err))
		}
		return nil
	})
}
