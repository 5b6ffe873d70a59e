package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/kubani/kubani/internal/orchestrator"
)

// RemoveNodeOptions describes the node to drain and remove.
type RemoveNodeOptions struct {
	ConfigPath string
	Hostname   string
	SkipDrain  bool
}

// RemoveNode drains a node out of the cluster, runs the teardown steps on
// the host and deletes it from the inventory. The inventory entry is only
// removed after teardown succeeds, so a failed removal stays visible.
func RemoveNode(ctx context.Context, opts RemoveNodeOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	store, inv, err := loadInventory(cfg)
	if err != nil {
		return err
	}
	if inv.Node(opts.Hostname) == nil {
		return Exit(ExitValidation, fmt.Errorf("node %q not found in inventory", opts.Hostname))
	}

	client, clientErr := newClusterClient(cfg.KubeconfigPath)
	if clientErr != nil {
		log.Printf("cluster API not reachable, skipping drain: %v", clientErr)
	} else if !opts.SkipDrain {
		if err := client.CordonNode(ctx, opts.Hostname); err != nil {
			return Exit(ExitValidation, fmt.Errorf("cordon failed: %w", err))
		}
		if err := client.DrainNode(ctx, opts.Hostname); err != nil {
			return Exit(ExitValidation, fmt.Errorf("drain failed: %w", err))
		}
	}

	runStore, err := orchestrator.NewRunStore(cfg.RunsDir)
	if err != nil {
		return Exit(ExitValidation, err)
	}

	o := orchestrator.New(newExecutor(cfg), nil, runStore)
	o.Concurrency = cfg.Concurrency
	o.Timeouts = cfg.Timeouts

	run, err := o.Execute(ctx, inv, orchestrator.Request{
		Operation: orchestrator.OpRemoveNode,
		Limit:     []string{opts.Hostname},
	})
	if err != nil {
		return Exit(ExitValidation, err)
	}
	if run.Status != orchestrator.StatusSucceeded {
		printRunSummary(run)
		return Exit(ExitTotalFailure, fmt.Errorf("teardown failed on %s; node kept in inventory", opts.Hostname))
	}

	if clientErr == nil {
		if err := client.DeleteNode(ctx, opts.Hostname); err != nil {
			log.Printf("failed to delete node object: %v", err)
		}
	}

	if err := inv.RemoveNode(opts.Hostname); err != nil {
		return Exit(ExitValidation, err)
	}
	if err := store.Save(inv); err != nil {
		return Exit(ExitValidation, err)
	}

	fmt.Fprintf(stdout, "removed %s from the cluster and inventory\n", opts.Hostname)
	return nil
}
