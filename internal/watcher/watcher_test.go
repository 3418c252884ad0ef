package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relctx/relctx/internal/ignore"
)

func waitForEvent(t *testing.T, ch <-chan Event, kind EventKind, path string) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed before seeing %s %s", kind, path)
			}
			if ev.Kind == kind && ev.Path == path {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s %s", kind, path)
		}
	}
}

func TestWatcherEmitsCreateAndModify(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, ignore.New(nil))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := w.Start(ctx)
	require.NoError(t, err)

	target := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(target, []byte("x = 1\n"), 0o644))
	waitForEvent(t, ch, EventCreate, target)

	require.NoError(t, os.WriteFile(target, []byte("x = 2\n"), 0o644))
	waitForEvent(t, ch, EventModify, target)

	ts, ok := w.LastEventTime(target)
	assert.True(t, ok)
	assert.False(t, ts.IsZero())
}

func TestWatcherIgnoresUnsupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, ignore.New(nil))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := w.Start(ctx)
	require.NoError(t, err)

	ignored := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(ignored, []byte("hello\n"), 0o644))

	tracked := filepath.Join(dir, "tracked.py")
	require.NoError(t, os.WriteFile(tracked, []byte("x = 1\n"), 0o644))
	waitForEvent(t, ch, EventCreate, tracked)

	_, ok := w.LastEventTime(ignored)
	assert.False(t, ok, "unsupported extension should never be recorded")
}

func TestWatcherInvokesInvalidationCallbackOnModify(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, ignore.New(nil))
	require.NoError(t, err)
	defer w.Close()

	invalidated := make(chan string, 4)
	w.RegisterInvalidationCallback(func(path string) { invalidated <- path })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := w.Start(ctx)
	require.NoError(t, err)

	target := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(target, []byte("x = 1\n"), 0o644))
	waitForEvent(t, ch, EventCreate, target)

	require.NoError(t, os.WriteFile(target, []byte("x = 2\n"), 0o644))
	waitForEvent(t, ch, EventModify, target)

	select {
	case path := <-invalidated:
		assert.Equal(t, target, path)
	case <-time.After(5 * time.Second):
		t.Fatal("expected invalidation callback on modify")
	}
}

func TestDrainTimestampsClearsState(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, ignore.New(nil))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := w.Start(ctx)
	require.NoError(t, err)

	target := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(target, []byte("x = 1\n"), 0o644))
	waitForEvent(t, ch, EventCreate, target)

	drained := w.DrainTimestamps()
	assert.Contains(t, drained, target)

	_, ok := w.LastEventTime(target)
	assert.False(t, ok, "DrainTimestamps must clear recorded timestamps")
}
