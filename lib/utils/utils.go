package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// PathAbs is filepath.Abs that also expands a leading ~/.
func PathAbs(path string) (string, error) {
	if strings.HasPrefix(filepath.ToSlash(path), "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		path = filepath.Join(home, path[2:])
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return path, nil
}

// PathRelativeTo resolves path against dir, unless it is absolute or starts with ~/.
func PathRelativeTo(path string, dir string) (string, error) {
	if !filepath.IsAbs(path) && !strings.HasPrefix(filepath.ToSlash(path), "~/") {
		path = filepath.Join(dir, path)
	}

	return PathAbs(path)
}
