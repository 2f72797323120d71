// Package testutil provides shared fixtures for dupfinder tests. All
// file operations live under t.TempDir() so tests are isolated and
// cleaned up automatically.
package testutil

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
)

// TestFixture owns a temporary directory tree for one test.
type TestFixture struct {
	T       *testing.T
	RootDir string
}

// NewFixture creates a fixture rooted in a fresh temp directory.
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()
	return &TestFixture{T: t, RootDir: t.TempDir()}
}

// CreateFile writes content to relPath under the fixture root, creating
// parent directories as needed, and returns the absolute path.
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullPath, err)
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}
	return fullPath
}

// CreateRandomFile creates a file of the given size with random content.
func (f *TestFixture) CreateRandomFile(relPath string, size int) string {
	f.T.Helper()
	content := make([]byte, size)
	if _, err := rand.Read(content); err != nil {
		f.T.Fatalf("failed to generate random content: %v", err)
	}
	return f.CreateFile(relPath, content)
}

// CreateDuplicateSet writes the same content to every given path and
// returns the absolute paths in argument order.
func (f *TestFixture) CreateDuplicateSet(content []byte, relPaths ...string) []string {
	f.T.Helper()
	paths := make([]string, len(relPaths))
	for i, rel := range relPaths {
		paths[i] = f.CreateFile(rel, content)
	}
	return paths
}

// CreateDir creates a directory under the root and returns its path.
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()
	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}
	return fullPath
}

// MakeUnreadable removes all permissions from a path and restores them
// on cleanup. Returns false when running as root, where permission bits
// do not restrict access and the caller should skip the test.
func (f *TestFixture) MakeUnreadable(path string) bool {
	f.T.Helper()

	if os.Getuid() == 0 {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		f.T.Fatalf("stat %s: %v", path, err)
	}
	if err := os.Chmod(path, 0000); err != nil {
		f.T.Fatalf("chmod %s: %v", path, err)
	}
	f.T.Cleanup(func() {
		_ = os.Chmod(path, info.Mode())
	})
	return true
}

// Exists reports whether a path still exists on disk.
func (f *TestFixture) Exists(path string) bool {
	f.T.Helper()
	_, err := os.Stat(path)
	return err == nil
}
