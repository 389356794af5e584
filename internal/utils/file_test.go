package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "apps.csv")
	require.NoError(t, os.WriteFile(file, []byte("gender,decision\n"), 0600))

	assert.NoError(t, ValidateInputFile(file))
	assert.ErrorContains(t, ValidateInputFile(""), "cannot be empty")
	assert.ErrorContains(t, ValidateInputFile(filepath.Join(dir, "missing.csv")), "does not exist")
	assert.ErrorContains(t, ValidateInputFile(dir), "is a directory")
}

func TestIsDatasetFile(t *testing.T) {
	tests := map[string]bool{
		"apps.csv":   true,
		"apps.JSON":  true,
		"apps.yml":   true,
		"apps.yaml":  true,
		"apps.txt":   false,
		"apps":       false,
		"apps.jsonl": false,
	}
	for name, want := range tests {
		assert.Equal(t, want, IsDatasetFile(name), name)
	}
}

func TestCheckFileSize(t *testing.T) {
	file := filepath.Join(t.TempDir(), "apps.json")
	require.NoError(t, os.WriteFile(file, make([]byte, 2048), 0600))

	assert.NoError(t, CheckFileSize(file, 0))
	assert.NoError(t, CheckFileSize(file, 4096))
	assert.ErrorContains(t, CheckFileSize(file, 1024), "2.0 KB, larger than the 1.0 KB limit")
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "10.0 MB", FormatFileSize(10*1024*1024))
}

func TestValidateOutputFileCreatesDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "reports", "audit.json")
	require.NoError(t, ValidateOutputFile(out))
	info, err := os.Stat(filepath.Dir(out))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
