package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubani/kubani/cmd/kubani/handlers"
)

// Provision returns the command executing a provisioning run.
//
// Optional flags:
//
//	--check: dry-run mode, report changes without applying them
//	--tags: restrict execution to the named step tags
//	--limit: restrict the run to the named hosts
//	--resume: resume an earlier run, skipping nodes that already succeeded
func Provision() *cobra.Command {
	var check bool
	var tags []string
	var limit []string
	var resumeID string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision all declared nodes",
		Long: `Provision every node in the inventory.

Control-plane nodes are provisioned first; workers are dispatched only after
the whole control plane is up. Nodes within a role run in parallel, and one
node's failure never stops the others.

Exit codes: 0 all nodes succeeded, 2 some nodes failed, 3 all nodes failed.

Examples:
  # Provision the whole fleet
  kubani provision

  # Dry run against two hosts
  kubani provision --check --limit w1 --limit w2

  # Retry a partially failed run
  kubani provision --resume 1b0e7c62-...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Provision(cmd.Context(), handlers.ProvisionOptions{
				ConfigPath: configPath(cmd),
				CheckMode:  check,
				Tags:       tags,
				Limit:      limit,
				ResumeID:   resumeID,
			})
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Report changes without applying them")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Only run steps with these tags")
	cmd.Flags().StringArrayVar(&limit, "limit", nil, "Only run against these hosts (repeatable)")
	cmd.Flags().StringVar(&resumeID, "resume", "", "Resume an earlier run by ID")

	return cmd
}
