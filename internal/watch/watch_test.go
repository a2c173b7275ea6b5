package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWatcher(ignore ...string) *Watcher {
	return &Watcher{opts: Options{
		Root:     "/site",
		Ignore:   ignore,
		Debounce: 20 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}}
}

func TestLoopDebouncesBursts(t *testing.T) {
	w := testWatcher("/site/_site", "/site/.kiln-cache")
	events := make(chan fsnotify.Event, 16)
	errs := make(chan error)
	batches := make(chan []string, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.loop(ctx, events, errs, func(paths []string) { batches <- paths })
	}()

	events <- fsnotify.Event{Name: "/site/b.md", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/site/a.md", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/site/b.md", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/site/_site/index.html", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/site/.kiln-cache/incremental.json", Op: fsnotify.Create}
	events <- fsnotify.Event{Name: "/site/c.md", Op: fsnotify.Chmod}

	select {
	case got := <-batches:
		assert.Equal(t, []string{"/site/a.md", "/site/b.md"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no rebuild triggered")
	}

	events <- fsnotify.Event{Name: "/site/c.md", Op: fsnotify.Remove}
	select {
	case got := <-batches:
		assert.Equal(t, []string{"/site/c.md"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no second rebuild triggered")
	}

	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, batches)
}

func TestLoopIgnoredOnlyNeverFires(t *testing.T) {
	w := testWatcher("/site/_site")
	events := make(chan fsnotify.Event, 4)
	fired := make(chan struct{}, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	events <- fsnotify.Event{Name: "/site/_site/a.html", Op: fsnotify.Write}
	require.NoError(t, w.loop(ctx, events, nil, func([]string) { fired <- struct{}{} }))
	assert.Empty(t, fired)
}

func TestLoopStopsWhenEventsClose(t *testing.T) {
	w := testWatcher()
	events := make(chan fsnotify.Event)
	close(events)
	require.NoError(t, w.loop(context.Background(), events, nil, func([]string) {}))
}

func TestNewWatchesTreeAndSkipsIgnored(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"_posts", "_site/assets", ".git", "nested/deep"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	w, err := New(Options{Root: root, Ignore: []string{filepath.Join(root, "_site")}})
	require.NoError(t, err)
	defer func() { _ = w.watcher.Close() }()

	watched := w.watcher.WatchList()
	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "_posts"),
		filepath.Join(root, "nested"),
		filepath.Join(root, "nested", "deep"),
	}, watched)
}
