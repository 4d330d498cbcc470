package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leynos/baton/core/identity"
	"github.com/leynos/baton/core/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions <conversation-id>",
	Short: "List a conversation's agent sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	convID, err := identity.ParseConversationID(args[0])
	if err != nil {
		return err
	}

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	registry, err := session.OpenSQLiteRegistry(env.dirs.DatabasePath("sessions.db"))
	if err != nil {
		return err
	}
	defer registry.Close()

	sessions, err := registry.FindByConversation(cmd.Context(), convID)
	if err != nil {
		return err
	}

	if rootJSON {
		return json.NewEncoder(os.Stdout).Encode(sessions)
	}
	for _, sess := range sessions {
		fmt.Printf("%s  %-10s  %-20s  since seq %d\n",
			sess.SessionID, sess.State, sess.AgentBackend, sess.StartSequence)
	}
	fmt.Printf("%d session(s)\n", len(sessions))
	return nil
}
