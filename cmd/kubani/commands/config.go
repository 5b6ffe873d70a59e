package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kubani/kubani/cmd/kubani/handlers"
	"github.com/kubani/kubani/internal/config"
)

// ConfigCmd returns the config command group (get/set).
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write fleet configuration values",
		Long: `Read and write configuration values stored in the inventory.

Keys are schema-checked: unknown keys and keys set at a scope they do not
apply to are rejected. Known keys: ` + strings.Join(config.KnownKeys(), ", ") + `.`,
	}

	cmd.AddCommand(configGet())
	cmd.AddCommand(configSet())
	return cmd
}

func configGet() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ConfigGet(handlers.ConfigGetOptions{
				ConfigPath: configPath(cmd),
				Key:        args[0],
				Scope:      scope,
			})
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "all", "Scope: all, control-plane or workers")
	return cmd
}

func configSet() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.ConfigSet(handlers.ConfigSetOptions{
				ConfigPath: configPath(cmd),
				Key:        args[0],
				Value:      args[1],
				Scope:      scope,
			})
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "all", "Scope: all, control-plane or workers")
	return cmd
}
