package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leynos/baton/core/clock"
	"github.com/leynos/baton/core/handoff"
	"github.com/leynos/baton/core/identity"
	"github.com/leynos/baton/core/session"
	"github.com/leynos/baton/core/snapshot"
)

var pendingCmd = &cobra.Command{
	Use:   "pending <conversation-id>",
	Short: "Show a conversation's pending handoff, if any",
	Args:  cobra.ExactArgs(1),
	RunE:  runPending,
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}

func runPending(cmd *cobra.Command, args []string) error {
	convID, err := identity.ParseConversationID(args[0])
	if err != nil {
		return err
	}

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	sessions, err := session.OpenSQLiteRegistry(env.dirs.DatabasePath("sessions.db"))
	if err != nil {
		return err
	}
	defer sessions.Close()

	handoffs, err := handoff.OpenSQLiteStore(env.dirs.DatabasePath("handoffs.db"))
	if err != nil {
		return err
	}
	defer handoffs.Close()

	snapshots, err := snapshot.OpenSQLiteStore(env.dirs.DatabasePath("snapshots.db"), clock.System())
	if err != nil {
		return err
	}
	defer snapshots.Close()

	coordinator := handoff.NewCoordinator(sessions, handoffs, snapshots, handoff.CoordinatorConfig{})
	pending, err := coordinator.GetPendingHandoff(cmd.Context(), convID)
	if err != nil {
		return err
	}
	if pending == nil {
		fmt.Println("no pending handoff")
		return nil
	}

	if rootJSON {
		return json.NewEncoder(os.Stdout).Encode(pending)
	}
	fmt.Printf("%s  %s -> %s  initiated %s\n",
		pending.HandoffID, pending.SourceAgent, pending.TargetAgent,
		pending.CreatedAt.Format("2006-01-02 15:04:05"))
	if pending.Reason != nil {
		fmt.Printf("reason: %s\n", *pending.Reason)
	}
	return nil
}
