package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDirs(root string) *Dirs {
	return &Dirs{
		Config: filepath.Join(root, "config"),
		Data:   filepath.Join(root, "data"),
		State:  filepath.Join(root, "state"),
	}
}

func TestDirs_Paths(t *testing.T) {
	d := testDirs("/tmp/baton-test")

	assert.Equal(t, "/tmp/baton-test/config/config.yaml", d.ConfigFile())
	assert.Equal(t, "/tmp/baton-test/data/db/messages.db", d.DatabasePath("messages.db"))
	assert.Equal(t, "/tmp/baton-test/data/index/messages.bleve", d.SearchIndexPath())
	assert.Equal(t, "/tmp/baton-test/state/logs", d.LogDir())
}

func TestDirs_EnsureAll(t *testing.T) {
	d := testDirs(t.TempDir())
	require.NoError(t, d.EnsureAll())

	for _, dir := range []string{d.Config, d.DataDir("db"), d.DataDir("index"), d.LogDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Config dir keeps restricted permissions.
	info, err := os.Stat(d.Config)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestResolveDir_XDGOverride(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/share")
	assert.Equal(t, filepath.Join("/custom/share", "baton"), resolveDir("XDG_DATA_HOME", "/fallback"))

	t.Setenv("XDG_DATA_HOME", "")
	assert.Equal(t, "/fallback", resolveDir("XDG_DATA_HOME", "/fallback"))
}
