package exec

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"

	"github.com/vcnkl/settle/config"
	"github.com/vcnkl/settle/models"
)

// ComposeEnv layers, lowest first: the process environment, settings env,
// dotenv files, task env and the SETTLE_* variables.
func ComposeEnv(root string, settings *config.Settings, task *models.Task, changed []string) []string {
	env := os.Environ()

	for k, v := range settings.Env {
		env = append(env, k+"="+v)
	}

	for _, file := range settings.Dotenv {
		pattern := file
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(root, file)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil || len(matches) == 0 {
			matches = []string{pattern}
		}
		for _, path := range matches {
			vars, err := LoadDotenv(path)
			if err != nil {
				continue
			}
			for k, v := range vars {
				env = append(env, k+"="+v)
			}
		}
	}

	for k, v := range task.Env {
		env = append(env, k+"="+v)
	}

	env = append(env,
		"SETTLE_ROOT="+root,
		"SETTLE_TASK="+task.Name,
		"SETTLE_CHANGED="+strings.Join(changed, string(os.PathListSeparator)),
	)

	return MergeEnv(env, nil)
}

func LoadDotenv(path string) (map[string]string, error) {
	return godotenv.Read(path)
}

// MergeEnv collapses duplicate keys; later entries win.
func MergeEnv(base, override []string) []string {
	envMap := make(map[string]string)
	var order []string

	for _, list := range [][]string{base, override} {
		for _, e := range list {
			idx := strings.Index(e, "=")
			if idx == -1 {
				continue
			}
			key := e[:idx]
			if _, ok := envMap[key]; !ok {
				order = append(order, key)
			}
			envMap[key] = e[idx+1:]
		}
	}

	result := make([]string, 0, len(order))
	for _, k := range order {
		result = append(result, k+"="+envMap[k])
	}

	return result
}
