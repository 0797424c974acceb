// Package watcher observes the managed codebase directory and triggers
// debounced reindexes when repository files change.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	// DefaultTick is how often pending deadlines are checked.
	DefaultTick = time.Second

	// DefaultWindow is the quiet period required after the last change
	// event before a reindex fires.
	DefaultWindow = 5 * time.Second
)

// Reindexer triggers a reindex for one repository.
type Reindexer interface {
	Reindex(ctx context.Context, name string) error
}

// Watcher maintains a per-repository deadline map. Every event for a
// repository pushes its deadline out by the debounce window; a ticker fires
// the reindex once the deadline elapses. Triggers are fire-and-forget: the
// watcher never awaits reindex completion, and overlapping triggers are
// tolerated because reindex is idempotent.
type Watcher struct {
	root      string
	reindexer Reindexer
	logger    *zap.Logger
	tick      time.Duration
	window    time.Duration

	fsw      *fsnotify.Watcher
	stop     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	deadlines map[string]time.Time
}

// Option adjusts watcher timing, mainly for tests.
type Option func(*Watcher)

// WithTick overrides the deadline polling interval.
func WithTick(d time.Duration) Option {
	return func(w *Watcher) { w.tick = d }
}

// WithWindow overrides the debounce window.
func WithWindow(d time.Duration) Option {
	return func(w *Watcher) { w.window = d }
}

// New creates a watcher rooted at the managed codebase directory. Each
// repository is expected to be an immediate child of root.
func New(root string, reindexer Reindexer, logger *zap.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		root:      root,
		reindexer: reindexer,
		logger:    logger,
		tick:      DefaultTick,
		window:    DefaultWindow,
		stop:      make(chan struct{}),
		deadlines: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching and returns immediately; event handling runs in a
// background goroutine until Stop is called or the context ends.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	// fsnotify watches are not recursive; every directory under root gets
	// its own watch, and directories created later are added on the fly.
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if addErr := fsw.Add(path); addErr != nil {
				w.logger.Warn("watching directory failed", zap.String("path", path), zap.Error(addErr))
			}
		}
		return nil
	})
	if err != nil {
		_ = fsw.Close()
		return err
	}

	w.logger.Info("watching for changes",
		zap.String("root", w.root),
		zap.Duration("debounce", w.window),
	)
	go w.run(ctx)
	return nil
}

// Stop shuts the watcher down. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if w.fsw != nil {
			_ = w.fsw.Close()
		}
	})
}

func (w *Watcher) run(ctx context.Context) {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		case now := <-ticker.C:
			for _, repo := range w.Due(now) {
				w.trigger(ctx, repo)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// New directories need their own watch.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.fsw.Add(event.Name)
		}
	}

	repo := repoForPath(event.Name)
	if repo == "" || repo == filepath.Base(w.root) {
		return
	}
	w.Note(repo, time.Now())
}

// Note records a change event for a repository, resetting its debounce
// deadline to now plus the window.
func (w *Watcher) Note(repo string, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deadlines[repo] = now.Add(w.window)
}

// Due returns the repositories whose debounce deadline has elapsed and
// clears them from the pending set. An entry is removed once its trigger is
// about to fire, not when the reindex completes.
func (w *Watcher) Due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var due []string
	for repo, deadline := range w.deadlines {
		if !now.Before(deadline) {
			due = append(due, repo)
			delete(w.deadlines, repo)
		}
	}
	return due
}

// Pending returns the number of repositories awaiting a trigger.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.deadlines)
}

func (w *Watcher) trigger(ctx context.Context, repo string) {
	w.logger.Info("changes detected, triggering reindex", zap.String("repo", repo))
	go func() {
		if err := w.reindexer.Reindex(context.WithoutCancel(ctx), repo); err != nil {
			w.logger.Warn("reindex trigger failed", zap.String("repo", repo), zap.Error(err))
		}
	}()
}

// repoForPath infers the repository from the immediate parent directory of
// the changed path.
func repoForPath(path string) string {
	return filepath.Base(filepath.Dir(path))
}
