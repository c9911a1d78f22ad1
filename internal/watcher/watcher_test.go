package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/twproj/internal/reactor"
	"github.com/fulmenhq/twproj/pkg/pathutil"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		op   fsnotify.Op
		want reactor.Kind
		ok   bool
	}{
		{fsnotify.Create, reactor.Created, true},
		{fsnotify.Write, reactor.Changed, true},
		{fsnotify.Create | fsnotify.Write, reactor.Created, true},
		{fsnotify.Remove, reactor.Deleted, true},
		{fsnotify.Rename, reactor.Deleted, true},
		{fsnotify.Chmod, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			got, ok := kindOf(tt.op)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBatchCoalesces(t *testing.T) {
	b := newBatch()
	b.add("/ws/a.css", reactor.Created)
	b.add("/ws/a.css", reactor.Changed)
	b.add("/ws/b.css", reactor.Changed)
	b.add("/ws/c.css", reactor.Created)
	b.add("/ws/c.css", reactor.Deleted)
	b.add("/ws/d.css", reactor.Deleted)
	b.add("/ws/d.css", reactor.Created)
	b.add("/ws/b.css", reactor.Deleted)
	assert.Equal(t, 4, b.len())

	assert.Equal(t, []reactor.Event{
		{Path: "/ws/a.css", Kind: reactor.Created},
		{Path: "/ws/b.css", Kind: reactor.Deleted},
		{Path: "/ws/d.css", Kind: reactor.Changed},
	}, b.events())
	assert.Empty(t, b.events(), "events drains the batch")
}

func TestBatchRecreatedAfterVanishing(t *testing.T) {
	b := newBatch()
	b.add("/ws/a.css", reactor.Created)
	b.add("/ws/a.css", reactor.Deleted)
	b.add("/ws/a.css", reactor.Created)
	assert.Equal(t, []reactor.Event{{Path: "/ws/a.css", Kind: reactor.Created}}, b.events())
}

func TestWatcherSkipsExcludedDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "pages"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "pkg"), 0o755))

	w, err := New(dir, Options{Exclude: []string{"**/node_modules"}})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	watched := w.WatchedPaths()
	assert.Contains(t, watched, filepath.Join(dir, "src", "pages"))
	assert.NotContains(t, watched, filepath.Join(dir, "node_modules"))
	assert.NotContains(t, watched, filepath.Join(dir, "node_modules", "pkg"))

	base := pathutil.FromOS(dir)
	assert.True(t, w.skipped(base+"/node_modules/pkg/index.css", false))
	assert.False(t, w.skipped(base+"/src/app.css", false))
	assert.True(t, w.skipped("/elsewhere/app.css", false))
}

func TestWatcherDeliversBatches(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))

	w, err := New(dir, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batches := make(chan []reactor.Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, events []reactor.Event) error {
			batches <- events
			return nil
		})
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "app.css"), []byte(`@import "tailwindcss";`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0o755))

	want := map[string]bool{
		pathutil.FromOS(filepath.Join(dir, "src", "app.css")): false,
	}
	for !allSeen(want) {
		select {
		case events := <-batches:
			for _, ev := range events {
				if _, ok := want[ev.Path]; ok {
					assert.Equal(t, reactor.Created, ev.Kind)
					want[ev.Path] = true
				}
			}
		case <-ctx.Done():
			t.Fatalf("no batch delivered: %v", want)
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func allSeen(m map[string]bool) bool {
	for _, ok := range m {
		if !ok {
			return false
		}
	}
	return true
}
