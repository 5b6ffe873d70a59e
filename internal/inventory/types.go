// Package inventory manages the durable declarative description of the fleet:
// which hosts are cluster members, their roles, and their per-node attributes.
//
// The persisted format is an Ansible-style hosts file with two node groups
// (control_plane, workers) plus global vars, so the same document drives both
// this tool and the external playbook executor.
package inventory

import (
	"fmt"
	"regexp"
)

// Role identifies a node's function in the cluster.
type Role string

const (
	// RoleControlPlane runs the Kubernetes API server and etcd.
	RoleControlPlane Role = "control-plane"
	// RoleWorker runs workloads only.
	RoleWorker Role = "worker"
)

// Valid reports whether the role is a recognized value.
func (r Role) Valid() bool {
	return r == RoleControlPlane || r == RoleWorker
}

// TaintEffect is the scheduling effect of a node taint.
type TaintEffect string

const (
	EffectNoSchedule       TaintEffect = "NoSchedule"
	EffectPreferNoSchedule TaintEffect = "PreferNoSchedule"
	EffectNoExecute        TaintEffect = "NoExecute"
)

// Valid reports whether the effect is one of the allowed Kubernetes values.
func (e TaintEffect) Valid() bool {
	switch e {
	case EffectNoSchedule, EffectPreferNoSchedule, EffectNoExecute:
		return true
	}
	return false
}

// MembershipState tracks where a node is in its cluster lifecycle.
// Transitions are owned by the orchestrator and the state aggregator;
// nothing else writes this field.
type MembershipState string

const (
	StatePending     MembershipState = "pending"
	StateJoining     MembershipState = "joining"
	StateReady       MembershipState = "ready"
	StateUnreachable MembershipState = "unreachable"
	StateRemoved     MembershipState = "removed"
)

// Taint is a Kubernetes node taint declared in the inventory.
type Taint struct {
	Key    string      `yaml:"key"`
	Value  string      `yaml:"value"`
	Effect TaintEffect `yaml:"effect"`
}

func (t Taint) String() string {
	return fmt.Sprintf("%s=%s:%s", t.Key, t.Value, t.Effect)
}

// Node is a durably declared cluster member.
//
// Only Hostname, TailscaleIP and Role are required; everything else is
// optional so a minimal node definition stays minimal.
type Node struct {
	Hostname       string
	AnsibleHost    string
	TailscaleIP    string
	Role           Role
	ReservedCPU    string
	ReservedMemory string
	GPU            bool
	Labels         map[string]string
	Taints         []Taint
	Membership     MembershipState
}

// Settings holds the cluster-wide configuration stored in the inventory's
// global vars block.
type Settings struct {
	ClusterName string
	K3sVersion  string
	PodCIDR     string
	ServiceCIDR string
	GitOpsRepo  string
	HA          bool
}

// Inventory is the aggregate of all declared nodes plus global settings.
//
// GroupVars preserves any additional untyped vars per scope (all,
// control_plane, workers) so a round-trip through Load/Save does not drop
// operator-managed configuration this tool does not model.
type Inventory struct {
	Settings  Settings
	Nodes     []Node
	GroupVars map[string]map[string]any
}

// Node returns the node with the given hostname, or nil.
func (inv *Inventory) Node(hostname string) *Node {
	for i := range inv.Nodes {
		if inv.Nodes[i].Hostname == hostname {
			return &inv.Nodes[i]
		}
	}
	return nil
}

// NodesByRole returns the nodes holding the given role, in inventory order.
func (inv *Inventory) NodesByRole(role Role) []Node {
	var out []Node
	for _, n := range inv.Nodes {
		if n.Role == role {
			out = append(out, n)
		}
	}
	return out
}

// AddNode appends a node after checking hostname and overlay IP uniqueness.
func (inv *Inventory) AddNode(n Node) error {
	for _, existing := range inv.Nodes {
		if existing.Hostname == n.Hostname {
			return fmt.Errorf("node %q already exists in inventory", n.Hostname)
		}
		if existing.TailscaleIP == n.TailscaleIP {
			return fmt.Errorf("tailscale IP %s already in use by node %q", n.TailscaleIP, existing.Hostname)
		}
	}
	inv.Nodes = append(inv.Nodes, n)
	return nil
}

// RemoveNode deletes the node with the given hostname.
func (inv *Inventory) RemoveNode(hostname string) error {
	for i := range inv.Nodes {
		if inv.Nodes[i].Hostname == hostname {
			inv.Nodes = append(inv.Nodes[:i], inv.Nodes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("node %q not found in inventory", hostname)
}

// hostnamePattern is RFC 1123 hostname validation.
var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([-a-zA-Z0-9]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([-a-zA-Z0-9]*[a-zA-Z0-9])?)*$`)
