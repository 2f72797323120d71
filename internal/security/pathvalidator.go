// Package security guards deletion requests that arrive from outside
// the process, such as the HTML report's delete endpoint. A request
// names an arbitrary path, so it is validated before any file is
// touched.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator rejects deletion targets that point at system
// directories or escape validation through symlinks.
type PathValidator struct {
	protectedPaths []string
}

// NewPathValidator creates a PathValidator with the default protected
// path set.
func NewPathValidator() *PathValidator {
	return &PathValidator{
		protectedPaths: []string{
			"/",
			"/bin",
			"/boot",
			"/dev",
			"/etc",
			"/lib",
			"/lib64",
			"/proc",
			"/root",
			"/sbin",
			"/sys",
			"/usr",
			"/var",
			"/System",
			"/Applications",
			"/Library/System",
		},
	}
}

// ValidateForDeletion decides whether a path may be deleted. The path
// must be absolute, must not contain null bytes, and must not resolve
// to a protected directory.
func (pv *PathValidator) ValidateForDeletion(path string) error {
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains null byte")
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}

	// Resolve symlinks so a link inside a scanned tree cannot reach a
	// protected directory. A missing file is validated literally; the
	// deletion itself will report it as not found.
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to resolve symlinks: %w", err)
		}
		resolved = filepath.Clean(path)
	}

	for _, protected := range pv.protectedPaths {
		if resolved == protected {
			return fmt.Errorf("refusing to delete protected path: %s", resolved)
		}
	}

	if home, err := os.UserHomeDir(); err == nil && resolved == home {
		return fmt.Errorf("refusing to delete home directory: %s", resolved)
	}
	return nil
}
