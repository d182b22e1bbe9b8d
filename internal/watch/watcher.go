// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slices"
)

// defaultDebounce is the quiet period after the last event. R sessions and
// editors often write a file several times in a burst.
const defaultDebounce = 500 * time.Millisecond

var (
	// ErrAlreadyRunning is returned when Run is called a second time.
	ErrAlreadyRunning = errors.New("watcher already running")

	// defaultIgnores are never watched. They cover VCS metadata, RStudio and
	// renv state, R session leftovers, editor swap files and the outputs the
	// analytics scripts themselves write, which would otherwise re-trigger
	// the task that produced them.
	defaultIgnores = []string{
		"**/.git/**",
		"**/.Rproj.user/**",
		"**/renv/library/**",
		"**/renv/staging/**",
		"**/packrat/lib*/**",
		"**/.Rhistory",
		"**/.RData",
		"**/*.swp",
		"**/*~",
		"**/.DS_Store",
		"reports/**",
		"visualizations/*.png",
		"data/*_processed.rds",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Patterns are doublestar globs relative to BaseDir selecting the
		// files that trigger a re-run. Empty matches every non-ignored file.
		Patterns []string
		// Ignore patterns are merged with the built-in ignores.
		Ignore []string
		// Debounce is the quiet period before OnChange fires. Zero or
		// negative uses defaultDebounce.
		Debounce time.Duration
		// ClearScreen writes an ANSI clear sequence to Stdout before each run.
		ClearScreen bool
		// BaseDir is the watched root. Empty means the working directory.
		BaseDir string
		// Immediate calls OnChange once with no changed paths before any
		// filesystem event arrives.
		Immediate bool
		// OnChange receives the deduplicated, sorted changed paths relative
		// to BaseDir. Its error is logged and does not stop the watcher.
		OnChange func(ctx context.Context, changed []string) error
		Stdout   io.Writer
		Logger   *log.Logger
	}

	// Watcher re-runs a callback when matching files under a directory tree
	// change. Callbacks never overlap: a batch that becomes ready while the
	// previous callback is still running is retried after another debounce.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		stdout   io.Writer
		logger   *log.Logger
		debounce time.Duration
		baseDir  string
		started  atomic.Bool

		mu       sync.Mutex
		pending  map[string]struct{}
		timer    *time.Timer
		closing  bool
		inflight sync.WaitGroup
		busy     atomic.Bool
	}
)

// New validates cfg and registers every non-ignored directory under BaseDir.
func New(cfg Config) (*Watcher, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		stdout:   cfg.Stdout,
		logger:   cfg.Logger,
		debounce: cfg.Debounce,
		baseDir:  absBase,
		pending:  make(map[string]struct{}),
	}
	if w.stdout == nil {
		w.stdout = os.Stdout
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard)
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			w.logger.Warn("close watcher after init failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done. It returns nil on cancellation and
// an error when the underlying watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: %w", ErrAlreadyRunning)
	}
	defer w.shutdown()

	w.logger.Info("watching for changes", "dir", w.baseDir, "patterns", w.cfg.Patterns)

	if w.cfg.Immediate {
		w.busy.Store(true)
		w.invoke(ctx, nil)
		w.busy.Store(false)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}
			w.handle(ctx, evt)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, evt fsnotify.Event) {
	// Permission and timestamp changes do not alter script contents.
	if evt.Op == fsnotify.Chmod {
		return
	}

	rel, err := filepath.Rel(w.baseDir, evt.Name)
	if err != nil {
		rel = evt.Name
	}
	if w.isIgnored(rel) {
		return
	}
	if evt.Has(fsnotify.Create) {
		w.maybeAddDir(evt.Name)
	}
	if !w.matchesPatterns(rel) {
		return
	}

	w.logger.Debug("change detected", "path", rel, "op", evt.Op.String())

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[filepath.ToSlash(rel)] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx) })
	} else {
		w.timer.Reset(w.debounce)
	}
}

// fire drains the pending batch into OnChange. It runs on the timer
// goroutine and is tracked so shutdown can wait for it.
func (w *Watcher) fire(ctx context.Context) {
	w.mu.Lock()
	if w.closing || ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	if !w.busy.CompareAndSwap(false, true) {
		w.logger.Info("previous run still in progress, deferring re-run")
		w.timer.Reset(w.debounce)
		w.mu.Unlock()
		return
	}
	defer w.busy.Store(false)
	w.inflight.Add(1)
	defer w.inflight.Done()

	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	clear(w.pending)
	w.mu.Unlock()

	slices.Sort(changed)
	w.invoke(ctx, changed)
}

func (w *Watcher) invoke(ctx context.Context, changed []string) {
	if w.cfg.ClearScreen {
		fmt.Fprint(w.stdout, "\033[2J\033[H")
	}
	if w.cfg.OnChange == nil {
		return
	}
	if err := w.cfg.OnChange(ctx, changed); err != nil {
		w.logger.Error("re-run failed", "err", err)
	}
}

// shutdown stops the debounce timer and waits for a running callback, whose
// context is already cancelled, so no child process outlives Run.
func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closing = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.inflight.Wait()
	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("close fsnotify watcher", "err", err)
	}
}

// addDirectories registers BaseDir and every non-ignored directory below it.
// Inaccessible directories are skipped with a warning.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil //nolint:nilerr // unreadable dirs are not fatal
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.baseDir, path)
		if relErr != nil {
			return nil //nolint:nilerr // cannot happen below baseDir
		}
		if rel != "." && w.isIgnoredDir(rel) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil || w.isIgnoredDir(rel) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("watch new directory", "path", path, "err", err)
	}
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

// isIgnoredDir also tries rel with a trailing separator so "dir/**"
// patterns exclude the directory itself.
func (w *Watcher) isIgnoredDir(rel string) bool {
	return w.isIgnored(rel) || w.isIgnored(rel+"/")
}

func (w *Watcher) matchesPatterns(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, normalized); err == nil && ok {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}
