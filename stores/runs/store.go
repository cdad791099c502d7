package runs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vcnkl/settle/debounce"
	"github.com/vcnkl/settle/logger"
)

const DefaultSaveDelay = 250 * time.Millisecond

type Entry struct {
	RunID      string    `json:"run_id"`
	InputHash  string    `json:"input_hash,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Changed    []string  `json:"changed,omitempty"`
}

func NewEntry(inputHash string, changed []string) *Entry {
	return &Entry{
		RunID:     uuid.NewString(),
		InputHash: inputHash,
		StartedAt: time.Now(),
		Changed:   changed,
	}
}

func (e *Entry) Finish(err error) {
	e.DurationMs = time.Since(e.StartedAt).Milliseconds()
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
}

func (e *Entry) Duration() time.Duration {
	return time.Duration(e.DurationMs) * time.Millisecond
}

type Store struct {
	path    string
	entries map[string]*Entry
	mu      sync.RWMutex
	writeMu sync.Mutex
	saver   *debounce.Debouncer
	log     logger.Logger
}

func NewStore(path string, log logger.Logger) *Store {
	return NewStoreWithDelay(path, DefaultSaveDelay, log)
}

func NewStoreWithDelay(path string, delay time.Duration, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		path:    path,
		entries: make(map[string]*Entry),
		saver:   debounce.MustNew(delay),
		log:     log,
	}
}

func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read runs file %s", s.path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = json.Unmarshal(data, &s.entries); err != nil {
		return errors.Wrapf(err, "failed to parse runs file %s", s.path)
	}
	if s.entries == nil {
		s.entries = make(map[string]*Entry)
	}

	return nil
}

func (s *Store) Get(task string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[task]
	return entry, ok
}

func (s *Store) Set(task string, entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[task] = entry
}

// Tasks returns the names of all recorded tasks, sorted.
func (s *Store) Tasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScheduleSave writes the store once no further ScheduleSave call arrives
// within the save delay. After Close it is a no-op.
func (s *Store) ScheduleSave() {
	err := s.saver.Debounce(func() {
		if err := s.Save(); err != nil {
			s.log.Error("failed to save run history", logger.Err(err))
		}
	})
	if err != nil && !errors.Is(err, debounce.ErrDisposed) {
		s.log.Warn("failed to schedule save", logger.Err(err))
	}
}

func (s *Store) Save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	data, err := json.MarshalIndent(s.entries, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "failed to marshal runs")
	}

	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmpPath := s.path + ".tmp"
	if err = os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write runs file %s", tmpPath)
	}

	if err = os.Rename(tmpPath, s.path); err != nil {
		return errors.Wrap(err, "failed to rename runs file")
	}

	return nil
}

// Close drops any scheduled save and writes the store one last time.
func (s *Store) Close() error {
	s.saver.Dispose()
	return s.Save()
}
