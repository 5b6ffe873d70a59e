// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the kubani CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kubani",
		Short:         "Manage a fleet of Kubernetes nodes over a Tailscale mesh",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (default: kubani.yaml)")

	cmd.AddCommand(Discover())
	cmd.AddCommand(AddNode())
	cmd.AddCommand(RemoveNode())
	cmd.AddCommand(Provision())
	cmd.AddCommand(Status())
	cmd.AddCommand(ConfigCmd())
	cmd.AddCommand(Version())

	return cmd
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
