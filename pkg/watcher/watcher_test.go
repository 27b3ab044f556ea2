package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changes struct {
	mu    sync.Mutex
	paths []string
}

func (c *changes) add(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *changes) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func startWatcher(t *testing.T, got *changes, opts ...Option) *Watcher {
	t.Helper()
	opts = append([]Option{WithDebounce(50 * time.Millisecond)}, opts...)
	w, err := New(got.add, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		w.Close()
	})
	return w
}

func TestWatchFileDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	part := filepath.Join(dir, "part.stl")
	other := filepath.Join(dir, "other.stl")
	require.NoError(t, os.WriteFile(part, []byte("solid a"), 0o644))

	got := &changes{}
	w := startWatcher(t, got)
	require.NoError(t, w.Add(part))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(part, []byte(strings.Repeat("x", i+1)), 0o644))
	}
	require.NoError(t, os.WriteFile(other, []byte("solid b"), 0o644))

	abs, err := filepath.Abs(part)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(got.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{abs}, got.snapshot(), "one report per burst, siblings ignored")
}

func TestWatchDirectoryAppliesFilter(t *testing.T) {
	dir := t.TempDir()
	got := &changes{}
	w := startWatcher(t, got, WithFilter(func(path string) bool {
		return filepath.Ext(path) == ".step"
	}))
	require.NoError(t, w.Add(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bracket.step"), []byte("ISO-10303-21;"), 0o644))

	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	paths := got.snapshot()
	require.Len(t, paths, 1)
	assert.Equal(t, "bracket.step", filepath.Base(paths[0]))
}

func TestAddMissingPath(t *testing.T) {
	w, err := New(func(string) {})
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Add(filepath.Join(t.TempDir(), "absent.stl")))
}

func TestRunStopsOnCancel(t *testing.T) {
	w, err := New(func(string) {})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Run(ctx), context.Canceled)
}

func TestFiredTimerKeepsReplacement(t *testing.T) {
	got := &changes{}
	w, err := New(got.add, WithDebounce(time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	w.mu.Lock()
	w.scheduleLocked("part.stl")
	// let the first timer fire and block on the lock
	time.Sleep(50 * time.Millisecond)
	w.debounce = time.Hour
	w.scheduleLocked("part.stl")
	replacement := w.timers["part.stl"]
	w.mu.Unlock()

	require.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Same(t, replacement, w.timers["part.stl"])
	w.stopTimersLocked()
}
