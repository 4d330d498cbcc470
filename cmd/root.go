// Package cmd provides the baton CLI: read-only inspection of the
// conversation, session, handoff and snapshot stores.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leynos/baton/core/config"
	"github.com/leynos/baton/core/storage"
)

var (
	rootDataDir string
	rootJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "baton",
	Short: "Baton - conversation and handoff coordination",
	Long: `Baton coordinates multi-agent conversations: an append-only message
log, agent session tracking and a handoff protocol with context
snapshots. These commands inspect the durable stores.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDataDir, "data-dir", "", "Override the data directory")
	rootCmd.PersistentFlags().BoolVar(&rootJSON, "json", false, "Emit JSON output")
}

// environment is the loaded configuration plus the directories every
// command reads its stores from.
type environment struct {
	dirs *storage.Dirs
	cfg  *config.Config
}

// loadEnvironment resolves directories, applying the --data-dir flag
// and the storage config section over the platform defaults.
func loadEnvironment() (*environment, error) {
	dirs := storage.ResolveDirs()

	manager := config.NewManager(dirs)
	if err := manager.Load(); err != nil {
		return nil, err
	}
	cfg := manager.Get()
	configureLogging(cfg)

	if override := cfg.Storage.DataDir; override != "" {
		dirs = &storage.Dirs{Config: dirs.Config, Data: override, State: dirs.State}
	}
	if rootDataDir != "" {
		dirs = &storage.Dirs{Config: dirs.Config, Data: rootDataDir, State: dirs.State}
	}
	return &environment{dirs: dirs, cfg: cfg}, nil
}

func configureLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
