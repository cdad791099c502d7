package config

import "time"

const (
	DefaultDelay    = 300 * time.Millisecond
	DefaultShell    = "/bin/sh"
	DefaultStateDir = ".settle"
)

type Settings struct {
	Delay       time.Duration     `koanf:"delay"`
	Shell       string            `koanf:"shell"`
	Env         map[string]string `koanf:"env"`
	Dotenv      []string          `koanf:"dotenv"`
	Notify      []string          `koanf:"notify"`
	MetricsAddr string            `koanf:"metrics_addr"`
	StateDir    string            `koanf:"state_dir"`
	Tasks       []TaskConfig      `koanf:"tasks"`
}

func (s *Settings) SetDefaults() {
	if s.Delay == 0 {
		s.Delay = DefaultDelay
	}
	if s.Shell == "" {
		s.Shell = DefaultShell
	}
	if s.Env == nil {
		s.Env = make(map[string]string)
	}
	if s.Dotenv == nil {
		s.Dotenv = []string{}
	}
	if s.Notify == nil {
		s.Notify = []string{}
	}
	if s.StateDir == "" {
		s.StateDir = DefaultStateDir
	}
	for i := range s.Tasks {
		s.Tasks[i].SetDefaults(s.Delay)
	}
}
