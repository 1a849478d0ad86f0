// Package filex prepares local paths used by the file-backed config stores.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// userHomeDir is a seam for tests.
var userHomeDir = os.UserHomeDir

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// EnsureDir expands path and creates it, owner-only, if it is missing.
func EnsureDir(path string) (string, error) {
	dir, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// EnsureFileDir expands a file path and creates its parent directory.
// SQLite in-memory and URI names are returned unchanged.
func EnsureFileDir(path string) (string, error) {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}
	file, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	if _, err := EnsureDir(filepath.Dir(file)); err != nil {
		return "", err
	}
	return file, nil
}
