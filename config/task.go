package config

import (
	"strings"
	"time"
)

type TaskConfig struct {
	Name       string            `koanf:"name"`
	Paths      []string          `koanf:"paths"`
	Inputs     []string          `koanf:"inputs"`
	Ignore     []string          `koanf:"ignore"`
	Gitignore  *bool             `koanf:"gitignore"`
	Cmd        interface{}       `koanf:"cmd"`
	Delay      time.Duration     `koanf:"delay"`
	Restart    bool              `koanf:"restart"`
	WorkingDir string            `koanf:"working_dir"`
	Env        map[string]string `koanf:"env"`
}

func (t *TaskConfig) GetCmd() string {
	switch v := t.Cmd.(type) {
	case string:
		return v
	case []interface{}:
		var cmds []string
		for _, c := range v {
			if s, ok := c.(string); ok {
				cmds = append(cmds, s)
			}
		}
		return strings.Join(cmds, "\n")
	case []string:
		return strings.Join(v, "\n")
	}
	return ""
}

func (t *TaskConfig) SetDefaults(delay time.Duration) {
	if t.Env == nil {
		t.Env = make(map[string]string)
	}
	if len(t.Paths) == 0 {
		t.Paths = []string{"."}
	}
	if t.Inputs == nil {
		t.Inputs = []string{}
	}
	if t.Ignore == nil {
		t.Ignore = []string{}
	}
	if t.Gitignore == nil {
		enabled := true
		t.Gitignore = &enabled
	}
	if t.Delay == 0 {
		t.Delay = delay
	}
	if t.WorkingDir == "" {
		t.WorkingDir = "."
	}
}
