package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"unsafe"

	"gopkg.in/yaml.v3"

	"github.com/leynos/baton/core/storage"
)

// =============================================================================
// Configuration Manager
// =============================================================================

// Manager holds the current configuration behind an atomic pointer so
// readers never block a reload.
type Manager struct {
	configPtr unsafe.Pointer
	dirs      *storage.Dirs
	watchers  []func(*Config)
	watcherMu sync.RWMutex
}

// Config is the full baton configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Messages MessagesConfig `yaml:"messages"`
	Search   SearchConfig   `yaml:"search"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig overrides where durable stores live.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// MessagesConfig tunes the message read cache.
type MessagesConfig struct {
	CacheMaxBytes int64 `yaml:"cache_max_bytes"`
	CacheCounters int64 `yaml:"cache_counters"`
}

// SearchConfig controls the full-text message index.
type SearchConfig struct {
	Enabled     bool `yaml:"enabled"`
	ResultLimit int  `yaml:"result_limit"`
}

// NewManager creates a manager seeded with defaults.
func NewManager(dirs *storage.Dirs) *Manager {
	m := &Manager{dirs: dirs}
	atomic.StorePointer(&m.configPtr, unsafe.Pointer(DefaultConfig()))
	return m
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Messages: MessagesConfig{
			CacheMaxBytes: 64 << 20,
			CacheCounters: 1_000_000,
		},
		Search: SearchConfig{
			Enabled:     true,
			ResultLimit: 10,
		},
	}
}

// Get returns the current configuration. Never nil.
func (m *Manager) Get() *Config {
	return (*Config)(atomic.LoadPointer(&m.configPtr))
}

// Load builds the effective configuration: defaults, then the user
// config file, then a project-local override, then environment
// variables. The result is swapped in atomically and watchers are
// notified.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if err := m.loadYAMLFile(m.dirs.ConfigFile(), cfg); err != nil {
		return fmt.Errorf("user config: %w", err)
	}

	if err := m.loadYAMLFile(filepath.Join(".baton", "config.yaml"), cfg); err != nil {
		return fmt.Errorf("local config: %w", err)
	}

	m.applyEnvironment(cfg)

	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	m.notifyWatchers(cfg)
	return nil
}

// Reload re-runs Load. Exists for watcher callers.
func (m *Manager) Reload() error {
	return m.Load()
}

func (m *Manager) loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (m *Manager) applyEnvironment(cfg *Config) {
	if v := os.Getenv("BATON_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BATON_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BATON_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("BATON_MESSAGES_CACHE_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Messages.CacheMaxBytes = n
		}
	}
	if v := os.Getenv("BATON_SEARCH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Search.Enabled = b
		}
	}
	if v := os.Getenv("BATON_SEARCH_RESULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.ResultLimit = n
		}
	}
}

// OnChange registers a callback invoked after each successful Load.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}
