package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/leynos/baton/core/backend"
)

var (
	backendKind     string
	backendEndpoint string
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Manage agent backend metadata",
}

var backendsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agent backends",
	Args:  cobra.NoArgs,
	RunE:  runBackendsList,
}

var backendsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register an agent backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackendsAdd,
}

var backendsRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an agent backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackendsRemove,
}

func init() {
	rootCmd.AddCommand(backendsCmd)
	backendsCmd.AddCommand(backendsListCmd, backendsAddCmd, backendsRemoveCmd)

	backendsAddCmd.Flags().StringVarP(&backendKind, "kind", "k", "http", "Backend kind")
	backendsAddCmd.Flags().StringVarP(&backendEndpoint, "endpoint", "e", "", "Backend endpoint")
}

func openBackendRegistry() (*backend.SQLiteRegistry, error) {
	env, err := loadEnvironment()
	if err != nil {
		return nil, err
	}
	return backend.OpenSQLiteRegistry(env.dirs.DatabasePath("backends.db"))
}

func runBackendsList(cmd *cobra.Command, args []string) error {
	registry, err := openBackendRegistry()
	if err != nil {
		return err
	}
	defer registry.Close()

	backends, err := registry.List(cmd.Context())
	if err != nil {
		return err
	}

	if rootJSON {
		return json.NewEncoder(os.Stdout).Encode(backends)
	}
	for _, b := range backends {
		state := "enabled"
		if !b.Enabled {
			state = "disabled"
		}
		fmt.Printf("%-20s  %-8s  %-30s  %s\n", b.Name, b.Kind, b.Endpoint, state)
	}
	fmt.Printf("%d backend(s)\n", len(backends))
	return nil
}

func runBackendsAdd(cmd *cobra.Command, args []string) error {
	registry, err := openBackendRegistry()
	if err != nil {
		return err
	}
	defer registry.Close()

	b, err := backend.NewBackend(args[0], backendKind, backendEndpoint, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := registry.Register(cmd.Context(), b); err != nil {
		return err
	}
	fmt.Printf("registered %s\n", b.Name)
	return nil
}

func runBackendsRemove(cmd *cobra.Command, args []string) error {
	registry, err := openBackendRegistry()
	if err != nil {
		return err
	}
	defer registry.Close()

	if err := registry.Remove(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", args[0])
	return nil
}
