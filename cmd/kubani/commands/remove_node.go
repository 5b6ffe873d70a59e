package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubani/kubani/cmd/kubani/handlers"
)

// RemoveNode returns the command draining and removing a fleet member.
func RemoveNode() *cobra.Command {
	var skipDrain bool

	cmd := &cobra.Command{
		Use:   "remove-node <hostname>",
		Short: "Drain a node and remove it from the cluster and inventory",
		Long: `Remove a machine from the fleet.

The node is cordoned and drained through the cluster API, torn down on the
host, deleted from the cluster and finally removed from the inventory. If
teardown fails the inventory entry is kept so the node stays visible.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.RemoveNode(cmd.Context(), handlers.RemoveNodeOptions{
				ConfigPath: configPath(cmd),
				Hostname:   args[0],
				SkipDrain:  skipDrain,
			})
		},
	}

	cmd.Flags().BoolVar(&skipDrain, "skip-drain", false, "Skip cordon and drain before teardown")

	return cmd
}
