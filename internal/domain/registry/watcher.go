package registry

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits for filesystem activity to
// settle before rescanning.
const DefaultDebounce = 500 * time.Millisecond

// manifestName matches a manifest file name without its directory
const manifestName = "*.{yaml,yml,json,toml}"

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce duration.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher rescans a Catalog when its directory changes and hands every
// non-empty Diff to a callback. The callback runs on the watcher's goroutine.
type Watcher struct {
	catalog  *Catalog
	onChange func(Diff)
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher creates a watcher over the catalog's directory.
func NewWatcher(catalog *Catalog, onChange func(Diff), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		catalog:  catalog,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.onChange == nil {
		w.onChange = func(Diff) {}
	}
	return w
}

// Run watches until ctx is canceled. A missing apps directory is not an
// error; the watcher idles until shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	dir := w.catalog.Dir()
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		w.logger.Warn("Apps directory not found, watcher idle", zap.String("dir", dir))
		<-ctx.Done()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addTree(fsw, dir); err != nil {
		return err
	}
	w.logger.Info("Watching apps directory", zap.String("dir", dir))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(fsw, ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			w.rescan(ctx)
		}
	}
}

func (w *Watcher) rescan(ctx context.Context) {
	diff, err := w.catalog.Scan(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("Rescan failed", zap.Error(err))
		}
		return
	}
	if !diff.Empty() {
		w.onChange(diff)
	}
}

// relevant reports whether ev can change the catalog. New directories are
// added to the watch set as a side effect.
func (w *Watcher) relevant(fsw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, ev.Name); err != nil {
				w.logger.Warn("Failed to watch directory", zap.String("dir", ev.Name), zap.Error(err))
			}
			return true
		}
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		return true
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	ok, _ := doublestar.Match(manifestName, filepath.Base(ev.Name))
	return ok
}

// addTree watches root and every directory below it; fsnotify is not
// recursive.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
}
