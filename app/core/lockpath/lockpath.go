// Package lockpath maps lock names and protected resources to sentinel file paths.
package lockpath

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hydraide/sentinel/app/core/filesystem"
)

// Extension is appended to bare lock names.
const Extension = ".lock"

// goos is swapped in tests.
var goos = runtime.GOOS

// DefaultDir returns the directory where named locks are stored when no
// directory is configured.
func DefaultDir() (string, error) {
	switch goos {
	case "windows":
		programData := os.Getenv("ProgramData")
		if programData == "" {
			return "", fmt.Errorf("%%ProgramData%% environment variable not set")
		}
		return filepath.Join(programData, "Sentinel", "locks"), nil
	case "linux":
		return "/var/lock/sentinel", nil
	default:
		return filepath.Join(os.TempDir(), "sentinel"), nil
	}
}

// DirPerm is the mode used for lock directories created by EnsureDir.
const DirPerm os.FileMode = 0o755

// EnsureDir creates dir through fsys if it does not exist yet.
func EnsureDir(ctx context.Context, fsys filesystem.FileSystem, dir string) error {
	if err := fsys.CreateDir(ctx, dir, DirPerm); err != nil {
		return fmt.Errorf("failed to create lock directory '%s': %w", dir, err)
	}
	return nil
}

// Resolve turns a lock name into a sentinel path. A bare name such as "cache"
// becomes dir/cache.lock. Anything that contains a path separator or already
// ends in .lock is treated as a path and only made absolute.
func Resolve(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("lock name must not be empty")
	}

	if isPath(name) {
		abs, err := filepath.Abs(name)
		if err != nil {
			return "", fmt.Errorf("failed to resolve lock path '%s': %w", name, err)
		}
		return abs, nil
	}

	if name == "." || name == ".." {
		return "", fmt.Errorf("invalid lock name '%s'", name)
	}
	return filepath.Join(dir, name+Extension), nil
}

// ForResource returns the sentinel path guarding resource. The name combines
// the resource's base name with a hash of its absolute path, so two resources
// that share a base name get different sentinels.
func ForResource(dir, resource string) (string, error) {
	if resource == "" {
		return "", fmt.Errorf("resource path must not be empty")
	}

	abs, err := filepath.Abs(resource)
	if err != nil {
		return "", fmt.Errorf("failed to resolve resource path '%s': %w", resource, err)
	}

	base := filepath.Base(abs)
	if base == string(filepath.Separator) || base == "." {
		base = "root"
	}

	return filepath.Join(dir, fmt.Sprintf("%s-%016x%s", base, xxhash.Sum64String(abs), Extension)), nil
}

func isPath(name string) bool {
	return strings.ContainsRune(name, '/') ||
		strings.ContainsRune(name, filepath.Separator) ||
		strings.HasSuffix(name, Extension)
}
