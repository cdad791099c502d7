package runs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcnkl/settle/models"
)

func readEntries(t *testing.T, path string) map[string]*Entry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries map[string]*Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestStore_Load(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError bool
		expected    map[string]*Entry
	}{
		{
			name:    "load valid JSON",
			content: `{"test":{"run_id":"r1","input_hash":"xxh3:abc","started_at":"2024-01-01T00:00:00Z","duration_ms":1000,"success":true}}`,
			expected: map[string]*Entry{
				"test": {
					RunID:      "r1",
					InputHash:  "xxh3:abc",
					StartedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
					DurationMs: 1000,
					Success:    true,
				},
			},
		},
		{
			name:     "load empty JSON",
			content:  `{}`,
			expected: map[string]*Entry{},
		},
		{
			name:     "load null",
			content:  `null`,
			expected: map[string]*Entry{},
		},
		{
			name:        "invalid JSON",
			content:     `{invalid}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "runs.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			store := NewStore(path, nil)
			defer store.saver.Dispose()

			err := store.Load()
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to parse runs file")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, store.entries)
		})
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"), nil)
	defer store.saver.Dispose()

	assert.NoError(t, store.Load())
	assert.Empty(t, store.Tasks())
}

func TestStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.json")
	store := NewStore(path, nil)

	entry := NewEntry("xxh3:1", []string{"/repo/main.go"})
	entry.Finish(nil)
	store.Set("test", entry)

	failed := NewEntry("", nil)
	failed.Finish(errors.New("exit status 1"))
	store.Set("lint", failed)

	require.NoError(t, store.Close())

	reloaded := NewStore(path, nil)
	defer reloaded.saver.Dispose()
	require.NoError(t, reloaded.Load())

	assert.Equal(t, []string{"lint", "test"}, reloaded.Tasks())

	got, ok := reloaded.Get("test")
	require.True(t, ok)
	assert.Equal(t, entry.RunID, got.RunID)
	assert.True(t, got.Success)
	assert.Equal(t, []string{"/repo/main.go"}, got.Changed)

	got, ok = reloaded.Get("lint")
	require.True(t, ok)
	assert.False(t, got.Success)
	assert.Equal(t, "exit status 1", got.Error)

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStore_ScheduleSaveCoalesces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	store := NewStoreWithDelay(path, 30*time.Millisecond, nil)
	defer store.Close()

	for i := 0; i < 10; i++ {
		store.Set("test", &Entry{RunID: "run", DurationMs: int64(i)})
		store.ScheduleSave()
	}

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "save must wait for the quiet window")

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	entries := readEntries(t, path)
	assert.Equal(t, int64(9), entries["test"].DurationMs)
}

func TestStore_CloseFlushesAndStopsScheduling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	store := NewStoreWithDelay(path, time.Hour, nil)

	store.Set("test", &Entry{RunID: "first"})
	store.ScheduleSave()
	require.NoError(t, store.Close())

	assert.Equal(t, "first", readEntries(t, path)["test"].RunID)

	store.Set("test", &Entry{RunID: "second"})
	assert.NotPanics(t, store.ScheduleSave)
	assert.Equal(t, "first", readEntries(t, path)["test"].RunID)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStoreWithDelay(filepath.Join(t.TempDir(), "runs.json"), 5*time.Millisecond, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				store.Set("task", &Entry{DurationMs: int64(i*100 + j)})
				store.Get("task")
				store.ScheduleSave()
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, store.Close())
	_, ok := store.Get("task")
	assert.True(t, ok)
}

func TestEntry_Finish(t *testing.T) {
	entry := NewEntry("xxh3:1", nil)
	entry.StartedAt = time.Now().Add(-1500 * time.Millisecond)
	entry.Finish(nil)

	assert.NotEmpty(t, entry.RunID)
	assert.True(t, entry.Success)
	assert.Empty(t, entry.Error)
	assert.GreaterOrEqual(t, entry.Duration(), 1500*time.Millisecond)
}

func TestValidator_ShouldRun(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0644))

	store := NewStore(filepath.Join(root, "runs.json"), nil)
	defer store.saver.Dispose()
	validator := NewValidator(root, store)

	task := &models.Task{Name: "build", Inputs: []string{"*.go"}}

	shouldRun, hash, err := validator.ShouldRun(task)
	require.NoError(t, err)
	assert.True(t, shouldRun, "no history")
	require.NotEmpty(t, hash)

	store.Set("build", &Entry{InputHash: hash, Success: false})
	shouldRun, _, err = validator.ShouldRun(task)
	require.NoError(t, err)
	assert.True(t, shouldRun, "last run failed")

	store.Set("build", &Entry{InputHash: hash, Success: true})
	shouldRun, _, err = validator.ShouldRun(task)
	require.NoError(t, err)
	assert.False(t, shouldRun, "inputs unchanged")

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n// edit"), 0644))
	shouldRun, _, err = validator.ShouldRun(task)
	require.NoError(t, err)
	assert.True(t, shouldRun, "inputs changed")

	shouldRun, hash, err = validator.ShouldRun(&models.Task{Name: "lint"})
	require.NoError(t, err)
	assert.True(t, shouldRun, "no inputs")
	assert.Empty(t, hash)
}
