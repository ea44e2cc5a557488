package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathAbsExpandsHome(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path, err := PathAbs("~/a/b")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "a", "b"), path)
}

func TestPathRelativeTo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path, err := PathRelativeTo("audit.db", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "audit.db"), path)

	abs := filepath.Join(dir, "other", "audit.db")
	path, err = PathRelativeTo(abs, "/somewhere/else")
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}
