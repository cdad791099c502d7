package config

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/vcnkl/settle/models"
)

var FileNames = []string{"settle.yml", "settle.yaml"}

var ErrNotFound = errors.New("no settle.yml found")

type Config struct {
	root     string
	path     string
	settings *Settings
	tasks    models.Tasks
}

func New(path string, settings *Settings) *Config {
	settings.SetDefaults()

	tasks := make(models.Tasks, 0, len(settings.Tasks))
	for _, tc := range settings.Tasks {
		tasks = append(tasks, &models.Task{
			Name:       tc.Name,
			Paths:      tc.Paths,
			Inputs:     tc.Inputs,
			Ignore:     tc.Ignore,
			Gitignore:  *tc.Gitignore,
			Cmd:        tc.GetCmd(),
			Delay:      tc.Delay,
			Restart:    tc.Restart,
			WorkingDir: tc.WorkingDir,
			Env:        tc.Env,
		})
	}

	return &Config{
		root:     filepath.Dir(path),
		path:     path,
		settings: settings,
		tasks:    tasks,
	}
}

func (c *Config) Root() string {
	return c.root
}

func (c *Config) Path() string {
	return c.path
}

func (c *Config) Settings() *Settings {
	return c.settings
}

func (c *Config) Tasks() models.Tasks {
	return c.tasks
}

func (c *Config) StateDir() string {
	if filepath.IsAbs(c.settings.StateDir) {
		return c.settings.StateDir
	}
	return filepath.Join(c.root, c.settings.StateDir)
}

func (c *Config) RunsPath() string {
	return filepath.Join(c.StateDir(), "runs.json")
}

func (c *Config) Validate() error {
	if c.settings.Delay < 0 {
		return errors.Errorf("delay must not be negative, got %s", c.settings.Delay)
	}
	if len(c.tasks) == 0 {
		return errors.New("no tasks defined")
	}

	seen := make(map[string]bool, len(c.tasks))
	for i, t := range c.tasks {
		if t.Name == "" {
			return errors.Errorf("task #%d has no name", i+1)
		}
		if seen[t.Name] {
			return errors.Errorf("duplicate task name: %s", t.Name)
		}
		seen[t.Name] = true

		if t.Cmd == "" {
			return errors.Errorf("task %s has no cmd", t.Name)
		}
		if t.Delay < 0 {
			return errors.Errorf("task %s: delay must not be negative, got %s", t.Name, t.Delay)
		}
	}

	return nil
}

// TaskDelay is the quiet window for a task, falling back to the global one.
func (c *Config) TaskDelay(t *models.Task) time.Duration {
	if t.Delay > 0 {
		return t.Delay
	}
	return c.settings.Delay
}
