package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubani/kubani/cmd/kubani/handlers"
)

// Status returns the command printing the fleet snapshot.
func Status() *cobra.Command {
	var pods bool
	var namespace string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show node health, resource usage and the last run",
		Long: `Show a point-in-time snapshot of the fleet.

Declared nodes are merged with live cluster state: readiness, kubelet
version, pod counts and resource usage. When the cluster API is unreachable
the nodes are shown with Unknown health instead of failing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), handlers.StatusOptions{
				ConfigPath: configPath(cmd),
				Pods:       pods,
				Namespace:  namespace,
			})
		},
	}

	cmd.Flags().BoolVar(&pods, "pods", false, "Also list pods")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Restrict pod listing to a namespace")

	return cmd
}
