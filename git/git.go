package git

import (
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// RepoRoot returns the top level of the work tree containing dir.
func RepoRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", errors.Wrapf(err, "%s is not inside a git work tree", dir)
	}
	return strings.TrimSpace(string(output)), nil
}

// ChangedFiles lists modified, staged and untracked files as absolute paths.
func ChangedFiles(repoRoot string) ([]string, error) {
	queries := [][]string{
		{"diff", "--name-only", "HEAD"},
		{"diff", "--name-only", "--cached"},
		{"ls-files", "--others", "--exclude-standard"},
	}

	seen := make(map[string]bool)
	var files []string

	for _, args := range queries {
		output, err := run(repoRoot, args...)
		if err != nil {
			return nil, err
		}

		for _, line := range strings.Split(output, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			absPath := filepath.Join(repoRoot, line)
			if !seen[absPath] {
				seen[absPath] = true
				files = append(files, absPath)
			}
		}
	}

	return files, nil
}

// run tolerates exit errors that print nothing on stderr, which is how git
// reports "no HEAD yet" for diff queries in a fresh repository.
func run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) == 0 {
			return string(output), nil
		}
		if errors.As(err, &exitErr) && strings.Contains(string(exitErr.Stderr), "HEAD") {
			return string(output), nil
		}
		return "", errors.Wrapf(err, "git %s", strings.Join(args, " "))
	}
	return string(output), nil
}
