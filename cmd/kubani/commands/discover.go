package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubani/kubani/cmd/kubani/handlers"
)

// Discover returns the command listing overlay peers and how they relate to
// the declared inventory.
//
// Optional flags:
//
//	--online: only show peers currently online
//	--pattern: filter hostnames by substring
func Discover() *cobra.Command {
	var onlineOnly bool
	var pattern string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List overlay network peers and classify them against the inventory",
		Long: `List machines visible on the Tailscale overlay network.

Each peer is classified against the declared inventory: matched members,
addable candidates, unreachable members and hostname conflicts. Discovery
never changes the inventory; promote a candidate with 'kubani add-node'.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Discover(cmd.Context(), handlers.DiscoverOptions{
				ConfigPath: configPath(cmd),
				OnlineOnly: onlineOnly,
				Pattern:    pattern,
			})
		},
	}

	cmd.Flags().BoolVar(&onlineOnly, "online", false, "Only show peers currently online")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Filter hostnames by substring")

	return cmd
}
