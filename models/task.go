package models

import (
	"path/filepath"
	"strings"
	"time"
)

type Task struct {
	Name       string
	Paths      []string
	Inputs     []string
	Ignore     []string
	Gitignore  bool
	Cmd        string
	Delay      time.Duration
	Restart    bool
	WorkingDir string
	Env        map[string]string
}

// WatchRoots resolves the task's watched paths against root.
func (t *Task) WatchRoots(root string) []string {
	paths := t.Paths
	if len(paths) == 0 {
		paths = []string{"."}
	}

	roots := make([]string, 0, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			roots = append(roots, filepath.Clean(p))
			continue
		}
		roots = append(roots, filepath.Join(root, p))
	}
	return roots
}

// Covers reports whether path lies under one of the task's watch roots.
func (t *Task) Covers(root, path string) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	for _, r := range t.WatchRoots(root) {
		if path == r || strings.HasPrefix(path, r+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

type Tasks []*Task

func (ts Tasks) Task(name string) (*Task, bool) {
	for _, t := range ts {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Select returns the named tasks in the order given, or every task when no
// names are passed.
func (ts Tasks) Select(names []string) (Tasks, error) {
	if len(names) == 0 {
		return ts, nil
	}

	selected := make(Tasks, 0, len(names))
	for _, name := range names {
		t, ok := ts.Task(name)
		if !ok {
			return nil, &TaskNotFoundError{Name: name}
		}
		selected = append(selected, t)
	}
	return selected, nil
}

func (ts Tasks) Names() []string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	return names
}

type TaskNotFoundError struct {
	Name string
}

func (e *TaskNotFoundError) Error() string {
	return "task not found: " + e.Name
}
