package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/kubani/kubani/internal/inventory"
	"github.com/kubani/kubani/internal/orchestrator"
)

// ProvisionOptions controls a provisioning run.
type ProvisionOptions struct {
	ConfigPath string
	CheckMode  bool
	Tags       []string
	Limit      []string
	ResumeID   string

	// addNode marks the run as an add-node operation instead of a full
	// provision. Set internally by AddNode.
	addNode bool
}

// Provision executes a provisioning run across the inventory. The exit code
// reflects the aggregate outcome: partial failure and total failure are
// distinguished so scripts can react to each.
func Provision(ctx context.Context, opts ProvisionOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	store, inv, err := loadInventory(cfg)
	if err != nil {
		return err
	}

	operation := orchestrator.OpFullProvision
	if opts.addNode {
		operation = orchestrator.OpAddNode
	}

	runStore, err := orchestrator.NewRunStore(cfg.RunsDir)
	if err != nil {
		return Exit(ExitValidation, err)
	}

	var readiness orchestrator.ReadinessWaiter
	if !opts.CheckMode {
		client, err := newClusterClient(cfg.KubeconfigPath)
		if err != nil {
			// A cluster being provisioned for the first time has no
			// kubeconfig yet; the readiness gate is skipped then.
			log.Printf("cluster API not reachable, skipping readiness gate: %v", err)
		} else {
			readiness = client
		}
	}

	o := orchestrator.New(newExecutor(cfg), readiness, runStore)
	o.Concurrency = cfg.Concurrency
	o.Timeouts = cfg.Timeouts
	o.Probe = probeNode

	run, err := o.Execute(ctx, inv, orchestrator.Request{
		Operation: operation,
		Limit:     opts.Limit,
		CheckMode: opts.CheckMode,
		Tags:      opts.Tags,
		ResumeID:  opts.ResumeID,
	})
	if err != nil {
		return Exit(ExitValidation, err)
	}

	if !run.CheckMode {
		markProvisioned(inv, run)
		if err := store.Save(inv); err != nil {
			return Exit(ExitValidation, fmt.Errorf("run %s finished but inventory update failed: %w", run.ID, err))
		}
	}

	printRunSummary(run)
	return runExitError(run)
}

// markProvisioned records successful provisioning in membership state.
func markProvisioned(inv *inventory.Inventory, run *orchestrator.Run) {
	for _, hostname := range run.Succeeded() {
		if node := inv.Node(hostname); node != nil {
			node.Membership = inventory.StateReady
		}
	}
	for _, hostname := range run.Failed() {
		if node := inv.Node(hostname); node != nil && node.Membership == inventory.StatePending {
			node.Membership = inventory.StateJoining
		}
	}
}

func printRunSummary(run *orchestrator.Run) {
	fmt.Fprintf(stdout, "run %s: %s\n", run.ID, run.Status)
	for _, hostname := range run.TargetNodes {
		outcome := run.Outcomes[hostname]
		line := fmt.Sprintf("  %s: %s", hostname, outcome.State)
		if outcome.State == orchestrator.OutcomeFailed {
			line += fmt.Sprintf(" (step %q, %s)", outcome.Step, outcome.Reason)
		}
		fmt.Fprintln(stdout, line)
	}
	if run.Resumable && run.Status != orchestrator.StatusSucceeded {
		fmt.Fprintf(stdout, "re-run with --resume %s to retry failed nodes\n", run.ID)
	}
}

func runExitError(run *orchestrator.Run) error {
	switch run.Status {
	case orchestrator.StatusPartiallyFailed:
		return Exit(ExitPartialFailure, fmt.Errorf("%d of %d nodes failed",
			len(run.Failed()), len(run.TargetNodes)))
	case orchestrator.StatusFailed:
		return Exit(ExitTotalFailure, fmt.Errorf("provisioning failed on all nodes"))
	default:
		return nil
	}
}
