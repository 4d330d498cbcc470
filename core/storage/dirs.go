// Package storage provides platform-native directory resolution with XDG support.
package storage

import (
	"os"
	"path/filepath"
	"sync"
)

// Dirs resolves where baton keeps its files.
type Dirs struct {
	Config string // User configuration
	Data   string // Persistent data (databases, search index)
	State  string // Runtime state (logs)
}

var (
	globalDirs     *Dirs
	globalDirsOnce sync.Once
)

// ResolveDirs returns platform-appropriate directories.
// Results are cached after first call.
func ResolveDirs() *Dirs {
	globalDirsOnce.Do(func() {
		globalDirs = &Dirs{
			Config: resolveDir("XDG_CONFIG_HOME", platformConfigDefault()),
			Data:   resolveDir("XDG_DATA_HOME", platformDataDefault()),
			State:  resolveDir("XDG_STATE_HOME", platformStateDefault()),
		}
	})
	return globalDirs
}

func resolveDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, "baton")
	}
	return fallback
}

// ConfigDir returns the config subdirectory path.
func (d *Dirs) ConfigDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Config}, subpath...)...)
}

// DataDir returns the data subdirectory path.
func (d *Dirs) DataDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Data}, subpath...)...)
}

// StateDir returns the state subdirectory path.
func (d *Dirs) StateDir(subpath ...string) string {
	return filepath.Join(append([]string{d.State}, subpath...)...)
}

// ConfigFile returns the user config file path.
func (d *Dirs) ConfigFile() string {
	return d.ConfigDir("config.yaml")
}

// DatabasePath returns the path of a named SQLite database.
func (d *Dirs) DatabasePath(name string) string {
	return d.DataDir("db", name)
}

// SearchIndexPath returns the message search index directory.
func (d *Dirs) SearchIndexPath() string {
	return d.DataDir("index", "messages.bleve")
}

// LogDir returns the log directory.
func (d *Dirs) LogDir() string {
	return d.StateDir("logs")
}

// EnsureDir creates a directory with the specified permissions if it
// doesn't exist. Uses 0700 when perm is zero.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0700
	}
	return os.MkdirAll(path, perm)
}

// EnsureAll creates all standard directories.
func (d *Dirs) EnsureAll() error {
	if err := EnsureDir(d.Config, 0700); err != nil {
		return err
	}
	for _, dir := range []string{
		d.DataDir("db"),
		d.DataDir("index"),
		d.LogDir(),
	} {
		if err := EnsureDir(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
