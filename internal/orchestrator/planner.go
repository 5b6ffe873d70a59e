package orchestrator

import (
	"fmt"
	"sort"

	"github.com/kubani/kubani/internal/inventory"
)

// Batch is a set of nodes that may be provisioned concurrently. Batches are
// dispatched in order with a barrier between them.
type Batch struct {
	Name  string
	Nodes []inventory.Node
}

// Plan is the ordered execution plan for a run.
type Plan struct {
	Operation Operation
	Batches   []Batch
}

// Targets returns all planned hostnames in dispatch order.
func (p *Plan) Targets() []string {
	var hostnames []string
	for _, batch := range p.Batches {
		for _, node := range batch.Nodes {
			hostnames = append(hostnames, node.Hostname)
		}
	}
	return hostnames
}

// BuildPlan derives the execution plan for an operation. Control-plane nodes
// always form the first batch; every control-plane node must succeed before
// any worker is dispatched, because workers join through the cluster API the
// control plane provides. Add-node and update reuse exactly the same per-role
// sequence as full provisioning.
//
// limit restricts the plan to the named hostnames; empty means all nodes.
func BuildPlan(inv *inventory.Inventory, op Operation, limit []string) (*Plan, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("unknown operation %q", op)
	}

	selected, err := selectNodes(inv, limit)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no nodes to operate on")
	}

	plan := &Plan{Operation: op}

	if op == OpRemoveNode {
		// Removal has no join ordering to respect; one batch.
		plan.Batches = append(plan.Batches, Batch{Name: "remove", Nodes: selected})
		return plan, nil
	}

	var controlPlane, workers []inventory.Node
	for _, node := range selected {
		if node.Role == inventory.RoleControlPlane {
			controlPlane = append(controlPlane, node)
		} else {
			workers = append(workers, node)
		}
	}

	if len(controlPlane) > 0 {
		plan.Batches = append(plan.Batches, Batch{Name: "control-plane", Nodes: controlPlane})
	}
	if len(workers) > 0 {
		plan.Batches = append(plan.Batches, Batch{Name: "workers", Nodes: workers})
	}
	return plan, nil
}

func selectNodes(inv *inventory.Inventory, limit []string) ([]inventory.Node, error) {
	if len(limit) == 0 {
		return inv.Nodes, nil
	}

	var selected []inventory.Node
	for _, hostname := range limit {
		node := inv.Node(hostname)
		if node == nil {
			return nil, fmt.Errorf("node %q not found in inventory", hostname)
		}
		selected = append(selected, *node)
	}
	return selected, nil
}

// resolveVars merges global vars, role-group vars and node-specific settings
// into the variable set passed to the executor. Node-specific values always
// win over group values.
func resolveVars(inv *inventory.Inventory, node inventory.Node) map[string]any {
	vars := map[string]any{}

	for k, v := range inv.GroupVars[inventory.ScopeAll] {
		vars[k] = v
	}

	group := inventory.GroupWorkers
	if node.Role == inventory.RoleControlPlane {
		group = inventory.GroupControlPlane
	}
	for k, v := range inv.GroupVars[group] {
		vars[k] = v
	}

	if node.ReservedCPU != "" {
		vars["reserved_cpu"] = node.ReservedCPU
	}
	if node.ReservedMemory != "" {
		vars["reserved_memory"] = node.ReservedMemory
	}
	if node.GPU {
		vars["gpu_enabled"] = true
	}
	if len(node.Labels) > 0 {
		vars["node_labels"] = node.Labels
	}
	if len(node.Taints) > 0 {
		taints := make([]string, 0, len(node.Taints))
		for _, taint := range node.Taints {
			taints = append(taints, taint.String())
		}
		sort.Strings(taints)
		vars["node_taints"] = taints
	}

	return vars
}

// playbookFor picks the playbook for a node and operation.
func playbookFor(op Operation, role inventory.Role) string {
	if op == OpRemoveNode {
		return "remove-node.yml"
	}
	if role == inventory.RoleControlPlane {
		return "control-plane.yml"
	}
	return "worker.yml"
}
