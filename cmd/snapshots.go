package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/leynos/baton/core/clock"
	"github.com/leynos/baton/core/identity"
	"github.com/leynos/baton/core/snapshot"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots <session-id>",
	Short: "List context snapshots captured for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshots,
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	sessionID, err := identity.ParseAgentSessionID(args[0])
	if err != nil {
		return err
	}

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	store, err := snapshot.OpenSQLiteStore(env.dirs.DatabasePath("snapshots.db"), clock.System())
	if err != nil {
		return err
	}
	defer store.Close()

	snaps, err := store.FindForSession(cmd.Context(), sessionID)
	if err != nil {
		return err
	}

	if rootJSON {
		return json.NewEncoder(os.Stdout).Encode(snaps)
	}
	for _, snap := range snaps {
		fmt.Printf("%s  %-18s  %s  %d open tool call(s)\n",
			snap.SnapshotID, snap.SnapshotType,
			snap.CreatedAt.Format(time.RFC3339), len(snap.ToolCallRefs))
	}
	fmt.Printf("%d snapshot(s)\n", len(snaps))
	return nil
}
