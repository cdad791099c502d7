package actions

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/vcnkl/settle/config"
	"github.com/vcnkl/settle/logger"
)

const starterConfig = `# settle re-runs each task once its watched paths have been quiet for "delay".
delay: 300ms
shell: /bin/sh
dotenv: [.env]

# Shoutrrr service URLs notified when a watched task fails.
notify: []

# Prometheus endpoint for "settle watch", e.g. ":9464".
metrics_addr: ""

tasks:
  - name: test
    paths: ["."]
    inputs: ["**/*.go", "go.mod", "go.sum"]
    ignore: ["**/*.swp"]
    cmd: go test ./...

  - name: serve
    paths: ["cmd", "internal"]
    delay: 1s
    restart: true
    cmd: go run ./cmd/server
`

type InitAction struct {
	dir   string
	log   logger.Logger
	force bool
}

func NewInitAction(dir string, log logger.Logger, force bool) *InitAction {
	return &InitAction{
		dir:   dir,
		log:   log,
		force: force,
	}
}

// Execute writes a starter config into the target directory and returns its
// path. An existing config is kept unless force is set.
func (a *InitAction) Execute() (string, error) {
	for _, name := range config.FileNames {
		existing := filepath.Join(a.dir, name)
		if _, err := os.Stat(existing); err == nil && !a.force {
			return "", errors.Errorf("%s already exists (use --force to overwrite)", existing)
		}
	}

	path := filepath.Join(a.dir, config.FileNames[0])
	if err := os.WriteFile(path, []byte(starterConfig), 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}

	a.log.Info("wrote config", logger.String("path", path))
	return path, nil
}
