package xfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandTilde("~"))
	assert.Equal(t, filepath.Join(home, ".nomic"), ExpandTilde("~/.nomic"))
	assert.Equal(t, "/opt/nomic", ExpandTilde("/opt/nomic"))
	assert.Equal(t, "~other/x", ExpandTilde("~other/x"))
}

func TestExistsAndFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.bin")

	assert.False(t, Exists(path))
	assert.Equal(t, int64(-1), FileSize(path))

	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o644))

	assert.True(t, Exists(path))
	assert.Equal(t, int64(5), FileSize(path))
}
