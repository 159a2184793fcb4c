package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "normal text", input: "Normal Text", expected: "Normal Text"},
		{name: "text with colon", input: "Title: Subtitle", expected: "Title - Subtitle"},
		{name: "text with slash", input: "Title/Subtitle", expected: "Title-Subtitle"},
		{name: "text with backslash", input: "Title\\Subtitle", expected: "Title-Subtitle"},
		{name: "text with both colon and slash", input: "Title: Subtitle/Part", expected: "Title - Subtitle-Part"},
		{name: "blank", input: "  ", expected: "untitled"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeFilename(tc.input))
		})
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "exists.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(filepath.Join(dir, "missing.txt")))
	assert.False(t, FileExists(dir), "directories are not files")
}

func TestWriteFileWithOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	written, err := WriteFileWithOverwrite(path, []byte("first"), 0o644, false)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = WriteFileWithOverwrite(path, []byte("second"), 0o644, false)
	require.NoError(t, err)
	assert.False(t, written)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))

	written, err = WriteFileWithOverwrite(path, []byte("third"), 0o644, true)
	require.NoError(t, err)
	assert.True(t, written)
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "third", string(content))
}
