package handlers

import (
	"context"
	"fmt"
	"log"
	"text/tabwriter"

	"github.com/kubani/kubani/internal/orchestrator"
	"github.com/kubani/kubani/internal/snapshot"
)

// StatusOptions controls the status display.
type StatusOptions struct {
	ConfigPath string
	Pods       bool
	Namespace  string
}

// Status prints a point-in-time cluster snapshot. An unreachable cluster API
// degrades the display to Unknown health instead of failing.
func Status(ctx context.Context, opts StatusOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	_, inv, err := loadInventory(cfg)
	if err != nil {
		return err
	}

	var cluster snapshot.ClusterAPI
	if client, err := newClusterClient(cfg.KubeconfigPath); err != nil {
		log.Printf("cluster API not reachable: %v", err)
	} else {
		cluster = client
	}

	runStore, err := orchestrator.NewRunStore(cfg.RunsDir)
	if err != nil {
		return Exit(ExitValidation, err)
	}

	agg := snapshot.New(cluster, runStore)
	snap := agg.Snapshot(ctx, inv, snapshot.Options{
		IncludePods:  opts.Pods,
		PodNamespace: opts.Namespace,
	})

	printSnapshot(snap)
	return nil
}

func printSnapshot(snap *snapshot.ClusterSnapshot) {
	fmt.Fprintf(stdout, "cluster: %s\n", snap.ClusterName)
	if !snap.APIHealthy {
		fmt.Fprintln(stdout, "cluster API: unreachable (node health unknown)")
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tROLE\tMEMBERSHIP\tHEALTH\tVERSION\tPODS\tCPU(m)\tMEM")
	for _, node := range snap.Nodes {
		mem := "-"
		if node.MemoryBytes > 0 {
			mem = fmt.Sprintf("%dMi", node.MemoryBytes/(1<<20))
		}
		cpu := "-"
		if node.CPUMilli > 0 {
			cpu = fmt.Sprint(node.CPUMilli)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			node.Hostname, node.Role, node.Membership, node.Health,
			orDash(node.KubeletVersion), node.PodCount, cpu, mem)
	}
	w.Flush()

	if snap.LastRun != nil {
		fmt.Fprintf(stdout, "\nlast run: %s (%s) %s\n",
			snap.LastRun.ID, snap.LastRun.Operation, snap.LastRun.Status)
	}

	if len(snap.Pods) > 0 {
		w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "\nNAMESPACE\tPOD\tNODE\tPHASE\tRESTARTS")
		for _, pod := range snap.Pods {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
				pod.Namespace, pod.Name, pod.Node, pod.Phase, pod.Restarts)
		}
		w.Flush()
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
