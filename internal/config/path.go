// Package config holds small helpers for resolving user-supplied
// configuration values.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading tilde and any environment variables in a
// configured filesystem path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	switch {
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
