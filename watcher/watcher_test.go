package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	scheduled, superseded, fired atomic.Int32
}

func (o *countingObserver) Scheduled()  { o.scheduled.Add(1) }
func (o *countingObserver) Superseded() { o.superseded.Add(1) }
func (o *countingObserver) Fired()      { o.fired.Add(1) }

func tempRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return root
}

func startWatcher(t *testing.T, opts Options) (*Watcher, <-chan []string) {
	t.Helper()

	w, err := New(opts)
	require.NoError(t, err)

	changes := make(chan []string, 16)
	w.OnChange(func(paths []string) {
		changes <- paths
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		w.Stop()
		<-done
	})

	select {
	case <-w.Ready():
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not become ready")
	}

	return w, changes
}

func waitChange(t *testing.T, changes <-chan []string) []string {
	t.Helper()
	select {
	case paths := <-changes:
		return paths
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
		return nil
	}
}

func TestWatcher_Ignored(t *testing.T) {
	root := tempRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\nbuild/\n"), 0644))

	w, err := New(Options{
		Root:      root,
		Ignore:    []string{"**/*.tmp", "./dist", "gen/**"},
		Gitignore: true,
	})
	require.NoError(t, err)
	defer w.Stop()

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "root itself", path: root, expected: false},
		{name: "plain source file", path: filepath.Join(root, "main.go"), expected: false},
		{name: "git directory", path: filepath.Join(root, ".git", "HEAD"), expected: true},
		{name: "node_modules nested", path: filepath.Join(root, "web", "node_modules", "x.js"), expected: true},
		{name: "state directory", path: filepath.Join(root, ".settle", "runs.json"), expected: true},
		{name: "doublestar pattern", path: filepath.Join(root, "a", "b", "c.tmp"), expected: true},
		{name: "directory pattern", path: filepath.Join(root, "dist"), expected: true},
		{name: "inside directory pattern", path: filepath.Join(root, "dist", "app.js"), expected: true},
		{name: "prefix is not a match", path: filepath.Join(root, "distro", "app.js"), expected: false},
		{name: "glob pattern", path: filepath.Join(root, "gen", "api.pb.go"), expected: true},
		{name: "gitignore file pattern", path: filepath.Join(root, "logs", "out.log"), expected: true},
		{name: "gitignore directory pattern", path: filepath.Join(root, "build", "bin"), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, w.Ignored(tt.path))
		})
	}
}

func TestWatcher_GitignoreDisabled(t *testing.T) {
	root := tempRoot(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0644))

	w, err := New(Options{Root: root})
	require.NoError(t, err)
	defer w.Stop()

	assert.False(t, w.Ignored(filepath.Join(root, "out.log")))
}

func TestWatcher_MissingPath(t *testing.T) {
	root := tempRoot(t)
	w, err := New(Options{Root: root, Paths: []string{filepath.Join(root, "missing")}})
	require.NoError(t, err)
	defer w.Stop()

	err = w.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch path")
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	root := tempRoot(t)
	observer := &countingObserver{}
	_, changes := startWatcher(t, Options{Root: root, Delay: 150 * time.Millisecond, Observer: observer})

	files := []string{"a.go", "b.go", "c.go"}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), []byte("package x"), 0644))
	}

	paths := waitChange(t, changes)
	for _, f := range files {
		assert.Contains(t, paths, filepath.Join(root, f))
	}
	assert.IsIncreasing(t, paths)

	select {
	case extra := <-changes:
		t.Fatalf("unexpected second delivery: %v", extra)
	case <-time.After(300 * time.Millisecond):
	}

	assert.Equal(t, int32(1), observer.fired.Load())
	assert.Greater(t, observer.superseded.Load(), int32(0))
}

func TestWatcher_SkipsIgnored(t *testing.T) {
	root := tempRoot(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "dist"), 0755))
	_, changes := startWatcher(t, Options{
		Root:   root,
		Ignore: []string{"dist", "**/*.tmp"},
		Delay:  50 * time.Millisecond,
	})

	require.NoError(t, os.WriteFile(filepath.Join(root, "dist", "bundle.js"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "scratch.tmp"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0644))

	paths := waitChange(t, changes)
	assert.Equal(t, []string{filepath.Join(root, "main.go")}, paths)
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := tempRoot(t)
	_, changes := startWatcher(t, Options{Root: root, Delay: 50 * time.Millisecond})

	sub := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))
	assert.Contains(t, waitChange(t, changes), sub)

	file := filepath.Join(sub, "util.go")
	require.NoError(t, os.WriteFile(file, []byte("package pkg"), 0644))
	assert.Contains(t, waitChange(t, changes), file)
}

func TestWatcher_StopSuppressesPending(t *testing.T) {
	root := tempRoot(t)
	w, changes := startWatcher(t, Options{Root: root, Delay: 200 * time.Millisecond})

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0644))
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop()

	select {
	case paths := <-changes:
		t.Fatalf("change delivered after stop: %v", paths)
	case <-time.After(400 * time.Millisecond):
	}
}
