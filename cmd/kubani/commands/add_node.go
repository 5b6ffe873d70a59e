package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubani/kubani/cmd/kubani/handlers"
)

// AddNode returns the command promoting a discovered peer into the inventory.
//
// Required flags:
//
//	--role: control-plane or worker
//
// Optional flags:
//
//	--gpu: mark the node as GPU-capable
//	--reserved-cpu, --reserved-memory: system daemon reservations
//	--label: node label in key=value form, repeatable
//	--taint: node taint in key=value:Effect form, repeatable
//	--provision: provision the node immediately after adding it
func AddNode() *cobra.Command {
	var role string
	var gpu bool
	var reservedCPU, reservedMemory string
	var labels, taints []string
	var provision bool

	cmd := &cobra.Command{
		Use:   "add-node <hostname>",
		Short: "Promote a discovered peer into the fleet inventory",
		Long: `Add a machine to the declared fleet inventory.

The host must be visible and authorized on the overlay network; its overlay
address is resolved through discovery so it can never be mistyped.

Examples:
  # Add a worker
  kubani add-node gpu1 --role worker --gpu

  # Add and provision in one step
  kubani add-node w3 --role worker --provision`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.AddNode(cmd.Context(), handlers.AddNodeOptions{
				ConfigPath:     configPath(cmd),
				Hostname:       args[0],
				Role:           role,
				GPU:            gpu,
				ReservedCPU:    reservedCPU,
				ReservedMemory: reservedMemory,
				Labels:         labels,
				Taints:         taints,
				Provision:      provision,
			})
		},
	}

	cmd.Flags().StringVar(&role, "role", "worker", "Node role: control-plane or worker")
	cmd.Flags().BoolVar(&gpu, "gpu", false, "Mark the node as GPU-capable")
	cmd.Flags().StringVar(&reservedCPU, "reserved-cpu", "", "CPU reserved for system daemons (e.g. 500m)")
	cmd.Flags().StringVar(&reservedMemory, "reserved-memory", "", "Memory reserved for system daemons (e.g. 1Gi)")
	cmd.Flags().StringArrayVar(&labels, "label", nil, "Node label in key=value form (repeatable)")
	cmd.Flags().StringArrayVar(&taints, "taint", nil, "Node taint in key=value:Effect form (repeatable)")
	cmd.Flags().BoolVar(&provision, "provision", false, "Provision the node immediately after adding it")

	return cmd
}
