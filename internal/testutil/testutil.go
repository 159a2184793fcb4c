// Package testutil provides common test utilities for the shelf project.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestEnv is a temporary directory that test files are confined to.
type TestEnv struct {
	t       *testing.T
	rootDir string
}

// NewTestEnv creates a sandbox removed when the test completes.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return &TestEnv{t: t, rootDir: t.TempDir()}
}

// RootDir returns the root directory of the test environment.
func (e *TestEnv) RootDir() string {
	return e.rootDir
}

// Path joins elem under the sandbox root and fails the test if the result
// escapes it.
func (e *TestEnv) Path(elem ...string) string {
	e.t.Helper()

	p := filepath.Clean(filepath.Join(append([]string{e.rootDir}, elem...)...))
	root := filepath.Clean(e.rootDir)
	if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
		e.t.Fatalf("path %q escapes test sandbox %q", p, e.rootDir)
	}
	return p
}

// MkdirAll creates a directory inside the sandbox.
func (e *TestEnv) MkdirAll(path string) {
	e.t.Helper()
	if err := os.MkdirAll(e.Path(path), 0o755); err != nil {
		e.t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// WriteFile writes content inside the sandbox, creating parent directories.
func (e *TestEnv) WriteFile(path string, content []byte) {
	e.t.Helper()

	abs := e.Path(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		e.t.Fatalf("failed to create parent directory for %s: %v", path, err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		e.t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// WriteFileString writes string content inside the sandbox.
func (e *TestEnv) WriteFileString(path, content string) {
	e.t.Helper()
	e.WriteFile(path, []byte(content))
}

// ReadFileString reads a sandbox file.
func (e *TestEnv) ReadFileString(path string) string {
	e.t.Helper()

	data, err := os.ReadFile(e.Path(path))
	if err != nil {
		e.t.Fatalf("failed to read file %s: %v", path, err)
	}
	return string(data)
}
