package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leynos/baton/core/handoff"
	"github.com/leynos/baton/core/identity"
)

var handoffsCmd = &cobra.Command{
	Use:   "handoffs <session-id>",
	Short: "List handoffs initiated from a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runHandoffs,
}

func init() {
	rootCmd.AddCommand(handoffsCmd)
}

func runHandoffs(cmd *cobra.Command, args []string) error {
	sessionID, err := identity.ParseAgentSessionID(args[0])
	if err != nil {
		return err
	}

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	store, err := handoff.OpenSQLiteStore(env.dirs.DatabasePath("handoffs.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	handoffs, err := store.FindBySourceSession(cmd.Context(), sessionID)
	if err != nil {
		return err
	}

	if rootJSON {
		return json.NewEncoder(os.Stdout).Encode(handoffs)
	}
	for _, h := range handoffs {
		target := "-"
		if h.TargetSessionID != nil {
			target = string(*h.TargetSessionID)
		}
		fmt.Printf("%s  %-10s  %s -> %s  target session %s\n",
			h.HandoffID, h.Status, h.SourceAgent, h.TargetAgent, target)
	}
	fmt.Printf("%d handoff(s)\n", len(handoffs))
	return nil
}
