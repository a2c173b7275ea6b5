// Package watch rebuilds a site when its sources change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the tree must stay quiet before a rebuild.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Root string
	// Ignore lists absolute directories whose changes never trigger a rebuild,
	// typically the destination and the cache dir.
	Ignore   []string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher watches Root recursively and reports batches of changed paths.
type Watcher struct {
	opts    Options
	watcher *fsnotify.Watcher
}

// New creates a watcher over every directory below opts.Root.
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	for i, dir := range opts.Ignore {
		opts.Ignore[i] = filepath.Clean(dir)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{opts: opts, watcher: fw}
	if err := w.addTree(opts.Root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (strings.HasPrefix(d.Name(), ".") || w.ignored(p)) {
			return filepath.SkipDir
		}
		return w.watcher.Add(p)
	})
}

// ignored reports whether p lies in an ignored directory.
func (w *Watcher) ignored(p string) bool {
	p = filepath.Clean(p)
	for _, dir := range w.opts.Ignore {
		if p == dir || strings.HasPrefix(p, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Run calls onChange with the sorted changed paths of each quiet period until
// ctx is done. onChange runs on the watch goroutine; events that arrive while
// it runs are collected into the next batch.
func (w *Watcher) Run(ctx context.Context, onChange func([]string)) error {
	defer func() { _ = w.watcher.Close() }()
	w.opts.Logger.Info("Watching for changes", "root", w.opts.Root)
	return w.loop(ctx, w.watcher.Events, w.watcher.Errors, onChange)
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, onChange func([]string)) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()

	collect := func(ev fsnotify.Event) bool {
		if ev.Op == fsnotify.Chmod || w.ignored(ev.Name) {
			return false
		}
		if ev.Has(fsnotify.Create) && w.watcher != nil {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if err := w.addTree(ev.Name); err != nil {
					w.opts.Logger.Warn("Failed to watch directory", "path", ev.Name, "error", err)
				}
			}
		}
		pending[ev.Name] = struct{}{}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if collect(ev) {
				timer.Reset(w.opts.Debounce)
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("Watcher error", "error", err)
		case <-timer.C:
			// drain whatever queued up while waiting
		drain:
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						break drain
					}
					collect(ev)
				default:
					break drain
				}
			}
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)
			onChange(changed)
		}
	}
}
