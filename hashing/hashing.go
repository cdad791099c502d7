package hashing

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/zeebo/xxh3"
)

const prefix = "xxh3:"

// HashInputs hashes every file matched by patterns, relative to root. File
// paths take part in the hash, so renames change it. No patterns yields an
// empty hash, which never matches a recorded one.
func HashInputs(root string, patterns []string) (string, error) {
	if len(patterns) == 0 {
		return "", nil
	}

	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		fullPattern := pattern
		if !filepath.IsAbs(pattern) {
			fullPattern = filepath.Join(root, pattern)
		}

		matches, err := doublestar.FilepathGlob(fullPattern, doublestar.WithFilesOnly())
		if err != nil {
			return "", errors.Wrapf(err, "failed to expand glob pattern %s", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	sort.Strings(files)

	h := xxh3.New()
	for _, file := range files {
		fileHash, err := HashFile(file)
		if os.IsNotExist(errors.Cause(err)) {
			continue
		}
		if err != nil {
			return "", err
		}

		rel, relErr := filepath.Rel(root, file)
		if relErr != nil {
			rel = file
		}
		_, _ = io.WriteString(h, rel)
		_, _ = io.WriteString(h, fileHash)
	}

	return fmt.Sprintf("%s%016x", prefix, h.Sum64()), nil
}

func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open file %s", path)
	}
	defer f.Close()

	h := xxh3.New()
	if _, err = io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "failed to hash file %s", path)
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}
