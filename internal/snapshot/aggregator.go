// Package snapshot builds a unified point-in-time view of the fleet from the
// declared inventory, the live cluster API and the provisioning run history.
//
// The aggregator degrades gracefully: an unreachable cluster API yields
// Unknown node statuses, and a missing run history omits the last-run field.
// Partial unavailability never fails a snapshot.
package snapshot

import (
	"context"
	"time"

	"github.com/kubani/kubani/internal/inventory"
	"github.com/kubani/kubani/internal/k8s"
	"github.com/kubani/kubani/internal/orchestrator"
)

// HealthStatus is what the cluster API reports for a node right now.
type HealthStatus string

const (
	HealthReady    HealthStatus = "Ready"
	HealthNotReady HealthStatus = "NotReady"
	// HealthUnknown means the cluster API was unreachable or has never
	// seen the node.
	HealthUnknown HealthStatus = "Unknown"
)

// NodeView merges a node's declared attributes with its observed state.
type NodeView struct {
	Hostname       string
	Role           inventory.Role
	Membership     inventory.MembershipState
	Health         HealthStatus
	KubeletVersion string
	InternalIP     string
	PodCount       int
	CPUMilli       int64
	MemoryBytes    int64
	GPU            bool
}

// ClusterSnapshot is the aggregate fleet view handed to CLI callers.
type ClusterSnapshot struct {
	TakenAt     time.Time
	ClusterName string
	APIHealthy  bool
	Nodes       []NodeView
	Pods        []k8s.PodInfo
	LastRun     *orchestrator.Run
}

// ClusterAPI is the subset of live cluster queries the aggregator needs.
// *k8s.Client satisfies it.
type ClusterAPI interface {
	ListNodeStatus(ctx context.Context) ([]k8s.NodeStatus, error)
	PodCountsByNode(ctx context.Context) (map[string]int, error)
	NodeUsageByName(ctx context.Context) (map[string]k8s.NodeUsage, error)
	ListPods(ctx context.Context, namespace string) ([]k8s.PodInfo, error)
}

// RunHistory provides the most recent provisioning run.
// *orchestrator.RunStore satisfies it.
type RunHistory interface {
	Latest() (*orchestrator.Run, error)
}

// Aggregator builds cluster snapshots.
type Aggregator struct {
	Cluster ClusterAPI
	Runs    RunHistory
}

// New creates an aggregator. Either collaborator may be nil; the snapshot
// simply carries less data.
func New(cluster ClusterAPI, runs RunHistory) *Aggregator {
	return &Aggregator{Cluster: cluster, Runs: runs}
}

// Options controls optional snapshot content.
type Options struct {
	IncludePods  bool
	PodNamespace string
}

// Snapshot merges the inventory with whatever live data is reachable.
func (a *Aggregator) Snapshot(ctx context.Context, inv *inventory.Inventory, opts Options) *ClusterSnapshot {
	snap := &ClusterSnapshot{
		TakenAt:     time.Now().UTC(),
		ClusterName: inv.Settings.ClusterName,
	}

	live := map[string]k8s.NodeStatus{}
	podCounts := map[string]int{}
	usage := map[string]k8s.NodeUsage{}

	if a.Cluster != nil {
		statuses, err := a.Cluster.ListNodeStatus(ctx)
		if err == nil {
			snap.APIHealthy = true
			for _, status := range statuses {
				live[status.Name] = status
			}
			if counts, err := a.Cluster.PodCountsByNode(ctx); err == nil {
				podCounts = counts
			}
			if u, err := a.Cluster.NodeUsageByName(ctx); err == nil {
				usage = u
			}
			if opts.IncludePods {
				if pods, err := a.Cluster.ListPods(ctx, opts.PodNamespace); err == nil {
					snap.Pods = pods
				}
			}
		}
	}

	for _, node := range inv.Nodes {
		view := NodeView{
			Hostname:   node.Hostname,
			Role:       node.Role,
			Membership: node.Membership,
			GPU:        node.GPU,
			Health:     HealthUnknown,
		}

		if snap.APIHealthy {
			if status, seen := live[node.Hostname]; seen {
				view.Health = HealthNotReady
				if status.Ready {
					view.Health = HealthReady
				}
				view.KubeletVersion = status.KubeletVersion
				view.InternalIP = status.InternalIP
				view.PodCount = podCounts[node.Hostname]
				if u, ok := usage[node.Hostname]; ok {
					view.CPUMilli = u.CPUMilli
					view.MemoryBytes = u.MemoryBytes
				}
			}
		}

		snap.Nodes = append(snap.Nodes, view)
	}

	if a.Runs != nil {
		if run, err := a.Runs.Latest(); err == nil && run != nil {
			snap.LastRun = run
		}
	}

	return snap
}

// Poll calls fn with a fresh snapshot every interval until the context is
// cancelled. The first snapshot is delivered immediately.
func (a *Aggregator) Poll(ctx context.Context, inv *inventory.Inventory, opts Options, interval time.Duration, fn func(*ClusterSnapshot)) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	fn(a.Snapshot(ctx, inv, opts))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(a.Snapshot(ctx, inv, opts))
		}
	}
}
