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

// Test Plan for FileWatcher:
// - NewFileWatcher creates watcher successfully with valid directories
// - NewFileWatcher returns error with invalid directory
// - Single declaration change fires callback after debounce
// - Rapid changes are coalesced into one sorted, deduplicated batch
// - Pause/Resume behavior (accumulate during pause, fire on resume)
// - Deleted files trigger callback
// - New directories are watched recursively
// - Extension filtering and WithFilter drop unrelated paths
// - Context cancellation and concurrent Stop() are safe

const testDebounce = 100 * time.Millisecond

// collector receives callback batches on a channel.
type collector struct {
	mu      sync.Mutex
	batches [][]string
	ch      chan []string
}

func newCollector() *collector {
	return &collector{ch: make(chan []string, 16)}
}

func (c *collector) callback(files []string) {
	c.mu.Lock()
	c.batches = append(c.batches, files)
	c.mu.Unlock()
	c.ch <- files
}

func (c *collector) wait(t *testing.T) []string {
	t.Helper()
	select {
	case files := <-c.ch:
		return files
	case <-time.After(2 * time.Second):
		t.Fatal("Callback not called after timeout")
		return nil
	}
}

func (c *collector) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case files := <-c.ch:
		t.Fatalf("unexpected callback with %v", files)
	case <-time.After(d):
	}
}

func startWatcher(t *testing.T, dir string, opts ...Option) *collector {
	t.Helper()
	opts = append([]Option{WithDebounce(testDebounce)}, opts...)
	w, err := NewFileWatcher([]string{dir}, []string{".ts"}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	c := newCollector()
	require.NoError(t, w.Start(context.Background(), c.callback))
	time.Sleep(50 * time.Millisecond)
	return c
}

func TestNewFileWatcher_Success(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, []string{".ts"})
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Stop())
}

func TestNewFileWatcher_InvalidDirectory(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{filepath.Join(t.TempDir(), "nonexistent")}, []string{".ts"})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestFileWatcher_SingleFileChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := startWatcher(t, dir)

	file := filepath.Join(dir, "index.d.ts")
	require.NoError(t, os.WriteFile(file, []byte("export declare const a: number;\n"), 0644))

	assert.Equal(t, []string{file}, c.wait(t))
}

func TestFileWatcher_Debouncing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := startWatcher(t, dir)

	b := filepath.Join(dir, "b.d.ts")
	a := filepath.Join(dir, "a.d.ts")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(b, []byte("declare const b: number;\n"), 0644))
		require.NoError(t, os.WriteFile(a, []byte("declare const a: number;\n"), 0644))
		time.Sleep(testDebounce / 4)
	}

	assert.Equal(t, []string{a, b}, c.wait(t))
	c.none(t, 2*testDebounce)
}

func TestFileWatcher_PauseResume(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewFileWatcher([]string{dir}, []string{".ts"}, WithDebounce(testDebounce))
	require.NoError(t, err)
	defer w.Stop()

	c := newCollector()
	require.NoError(t, w.Start(context.Background(), c.callback))
	time.Sleep(50 * time.Millisecond)

	w.Pause()
	file := filepath.Join(dir, "paused.d.ts")
	require.NoError(t, os.WriteFile(file, []byte("declare const p: number;\n"), 0644))
	c.none(t, 3*testDebounce)

	w.Resume()
	assert.Equal(t, []string{file}, c.wait(t))
}

func TestFileWatcher_FileDeleted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "gone.d.ts")
	require.NoError(t, os.WriteFile(file, []byte("declare const g: number;\n"), 0644))

	c := startWatcher(t, dir)
	require.NoError(t, os.Remove(file))

	assert.Contains(t, c.wait(t), file)
}

func TestFileWatcher_DirectoryAdded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := startWatcher(t, dir)

	sub := filepath.Join(dir, "lib")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(50 * time.Millisecond)

	file := filepath.Join(sub, "nested.d.ts")
	require.NoError(t, os.WriteFile(file, []byte("declare const n: number;\n"), 0644))

	// the directory creation itself is not a .ts event
	assert.Contains(t, c.wait(t), file)
}

func TestFileWatcher_ExtensionFiltering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# readme\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("a: 1\n"), 0644))
	c.none(t, 3*testDebounce)

	file := filepath.Join(dir, "index.d.ts")
	require.NoError(t, os.WriteFile(file, []byte("declare const i: number;\n"), 0644))
	assert.Equal(t, []string{file}, c.wait(t))
}

func TestFileWatcher_WithFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dist := filepath.Join(dir, "dist")
	require.NoError(t, os.Mkdir(dist, 0755))

	c := startWatcher(t, dir, WithFilter(func(path string) bool {
		return !strings.HasPrefix(path, dist+string(filepath.Separator))
	}))

	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.d.ts"), []byte("export {};\n"), 0644))
	c.none(t, 3*testDebounce)

	file := filepath.Join(dir, "index.d.ts")
	require.NoError(t, os.WriteFile(file, []byte("export {};\n"), 0644))
	assert.Equal(t, []string{file}, c.wait(t))
}

func TestFileWatcher_ContextCancellation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewFileWatcher([]string{dir}, []string{".ts"}, WithDebounce(testDebounce))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	c := newCollector()
	require.NoError(t, w.Start(ctx, c.callback))
	cancel()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.d.ts"), []byte("export {};\n"), 0644))
	c.none(t, 3*testDebounce)
	require.NoError(t, w.Stop())
}

func TestFileWatcher_ConcurrentStop(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, []string{".ts"})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background(), func([]string) {}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Stop()
		}()
	}
	wg.Wait()
}

func TestFileWatcher_StopWithoutStart(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, []string{".ts"})
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
