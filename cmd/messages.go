package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leynos/baton/core/config"
	"github.com/leynos/baton/core/conversation"
	"github.com/leynos/baton/core/identity"
)

var messagesCmd = &cobra.Command{
	Use:   "messages <conversation-id>",
	Short: "List a conversation's messages in sequence order",
	Args:  cobra.ExactArgs(1),
	RunE:  runMessages,
}

func init() {
	rootCmd.AddCommand(messagesCmd)
}

func runMessages(cmd *cobra.Command, args []string) error {
	convID, err := identity.ParseConversationID(args[0])
	if err != nil {
		return err
	}

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	base, err := conversation.OpenSQLiteLog(env.dirs.DatabasePath("messages.db"))
	if err != nil {
		return err
	}
	defer base.Close()

	log, err := conversation.NewCachedLog(base, messageCacheConfig(env.cfg))
	if err != nil {
		return err
	}
	defer log.Close()

	msgs, err := log.FindByConversation(cmd.Context(), convID)
	if err != nil {
		return err
	}

	if rootJSON {
		return json.NewEncoder(os.Stdout).Encode(msgs)
	}
	for _, msg := range msgs {
		fmt.Printf("%6d  %-9s  %s\n", msg.SequenceNumber, msg.Role, firstLine(msg.PlainText()))
	}
	fmt.Printf("%d message(s)\n", len(msgs))
	return nil
}

// messageCacheConfig maps the messages config section onto the read
// cache. Zero config values keep the cache defaults.
func messageCacheConfig(cfg *config.Config) conversation.CacheConfig {
	return conversation.CacheConfig{
		NumCounters: cfg.Messages.CacheCounters,
		MaxCost:     cfg.Messages.CacheMaxBytes,
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
