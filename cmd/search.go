package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leynos/baton/core/config"
	"github.com/leynos/baton/core/identity"
	"github.com/leynos/baton/core/search"
)

// ErrSearchDisabled indicates the search section of the config turned
// indexing off.
var ErrSearchDisabled = errors.New("search is disabled in configuration")

var (
	searchLimit        int
	searchConversation string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over message content",
	Long: `Search indexed message text.

Examples:
  baton search "websocket reconnect"
  baton search --conversation 6f1a... "deploy"
  baton search --json "error" | jq '.[].MessageID'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "Maximum number of results")
	searchCmd.Flags().StringVarP(&searchConversation, "conversation", "c", "", "Restrict to one conversation")
}

// effectiveSearchLimit prefers the --limit flag, then the configured
// result limit.
func effectiveSearchLimit(flagLimit int, cfg *config.Config) int {
	if flagLimit > 0 {
		return flagLimit
	}
	return cfg.Search.ResultLimit
}

func runSearch(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if !env.cfg.Search.Enabled {
		return ErrSearchDisabled
	}
	index, err := search.OpenIndex(env.dirs.SearchIndexPath())
	if err != nil {
		return err
	}
	defer index.Close()

	limit := effectiveSearchLimit(searchLimit, env.cfg)
	query := args[0]
	var hits []search.Hit
	if searchConversation != "" {
		convID, err := identity.ParseConversationID(searchConversation)
		if err != nil {
			return err
		}
		hits, err = index.SearchConversation(cmd.Context(), convID, query, limit)
		if err != nil {
			return err
		}
	} else {
		hits, err = index.Search(cmd.Context(), query, limit)
		if err != nil {
			return err
		}
	}

	if rootJSON {
		return json.NewEncoder(os.Stdout).Encode(hits)
	}
	for _, hit := range hits {
		fmt.Printf("%.3f  %s  (conversation %s)\n", hit.Score, hit.MessageID, hit.ConversationID)
	}
	fmt.Printf("%d hit(s)\n", len(hits))
	return nil
}
