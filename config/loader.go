package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/vcnkl/settle/git"
)

// Load reads settle.yml from path, or discovers it when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := Discover()
		if err != nil {
			return nil, err
		}
		path = found
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", path)
	}

	k := koanf.New(".")
	if err = k.Load(file.Provider(absPath), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", absPath)
	}

	var settings Settings
	if err = k.Unmarshal("", &settings); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", absPath)
	}

	cfg := New(absPath, &settings)
	if err = cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", absPath)
	}

	return cfg, nil
}

// Discover looks for a config file in the working directory, then in the
// root of the enclosing git work tree.
func Discover() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get working directory")
	}

	dirs := []string{cwd}
	if root, err := git.RepoRoot(cwd); err == nil && root != cwd {
		dirs = append(dirs, root)
	}

	for _, dir := range dirs {
		if path, ok := findIn(dir); ok {
			return path, nil
		}
	}

	return "", errors.Wrapf(ErrNotFound, "searched %v", dirs)
}

func findIn(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
