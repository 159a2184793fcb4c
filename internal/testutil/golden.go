package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GoldenHelper compares output against files in a golden directory. With
// UPDATE_GOLDEN=true the golden files are rewritten instead.
type GoldenHelper struct {
	t          *testing.T
	goldenDir  string
	updateMode bool
}

// NewGoldenHelper creates a helper for goldenDir.
func NewGoldenHelper(t *testing.T, goldenDir string) *GoldenHelper {
	t.Helper()
	return &GoldenHelper{
		t:          t,
		goldenDir:  goldenDir,
		updateMode: os.Getenv("UPDATE_GOLDEN") == "true",
	}
}

// GoldenPath returns the full path to a golden file.
func (g *GoldenHelper) GoldenPath(name string) string {
	return filepath.Join(g.goldenDir, name)
}

// read returns the golden content, or nil after updating it in update mode.
func (g *GoldenHelper) read(name string, actual []byte) []byte {
	g.t.Helper()

	path := g.GoldenPath(name)
	if g.updateMode {
		require.NoError(g.t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create golden file directory")
		require.NoError(g.t, os.WriteFile(path, actual, 0o644), "failed to update golden file")
		g.t.Logf("Updated golden file: %s", path)
		return nil
	}

	golden, err := os.ReadFile(path)
	require.NoError(g.t, err, "failed to read golden file %s", path)
	return golden
}

// AssertGoldenString compares actual with the golden file byte for byte.
func (g *GoldenHelper) AssertGoldenString(name, actual string) {
	g.t.Helper()
	if golden := g.read(name, []byte(actual)); golden != nil {
		assert.Equal(g.t, string(golden), actual, "content does not match golden file %s", name)
	}
}

// AssertGoldenJSON compares JSON content, ignoring formatting differences.
func (g *GoldenHelper) AssertGoldenJSON(name string, actual []byte) {
	g.t.Helper()
	if golden := g.read(name, actual); golden != nil {
		assert.JSONEq(g.t, string(golden), string(actual), "JSON content does not match golden file %s", name)
	}
}
