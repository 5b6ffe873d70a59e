// Package reconcile computes the difference between the discovered overlay
// network peers and the declared inventory.
//
// The resulting plan is purely advisory: applying it is a separate, explicit
// operator action. Discovery never mutates durable inventory.
package reconcile

import (
	"github.com/kubani/kubani/internal/inventory"
	"github.com/kubani/kubani/internal/tailnet"
)

// Classification labels one plan entry.
type Classification string

const (
	// Matched means the peer's overlay address corresponds to an inventory node.
	Matched Classification = "matched"
	// Candidate means the peer is authorized on the overlay but not declared
	// in the inventory; it is discoverable and addable.
	Candidate Classification = "candidate"
	// UnreachableMember means an inventory node has no visible overlay peer.
	UnreachableMember Classification = "unreachable-member"
	// HostnameConflict means a peer's hostname collides with an inventory
	// node that declares a different overlay address. The reconciler reports
	// it rather than guessing; resolution is left to the operator.
	HostnameConflict Classification = "hostname-conflict"
)

// Entry is one classified peer or node in a reconciliation plan.
type Entry struct {
	Classification Classification
	Hostname       string
	TailscaleIP    string

	// Peer is the discovered peer, when one participated in the match.
	Peer *tailnet.Peer
	// Node is the inventory node, when one participated in the match.
	Node *inventory.Node

	// ProposedState is a suggested membership update for matched nodes whose
	// online status changed. Empty when no update is proposed.
	ProposedState inventory.MembershipState
}

// Plan is the advisory output of a diff.
type Plan struct {
	Entries []Entry
}

// ByClassification returns the entries with the given classification.
func (p Plan) ByClassification(c Classification) []Entry {
	var out []Entry
	for _, e := range p.Entries {
		if e.Classification == c {
			out = append(out, e)
		}
	}
	return out
}

// Candidates returns the discoverable, addable peers.
func (p Plan) Candidates() []Entry { return p.ByClassification(Candidate) }

// Conflicts returns the hostname conflicts requiring operator resolution.
func (p Plan) Conflicts() []Entry { return p.ByClassification(HostnameConflict) }

// Diff classifies every peer against the inventory and every inventory node
// against the peer set.
func Diff(inv *inventory.Inventory, peers []tailnet.Peer) Plan {
	byIP := make(map[string]*inventory.Node)
	byHostname := make(map[string]*inventory.Node)
	for i := range inv.Nodes {
		n := &inv.Nodes[i]
		byIP[n.TailscaleIP] = n
		byHostname[n.Hostname] = n
	}

	var plan Plan
	seenNodeIPs := make(map[string]bool)

	for i := range peers {
		peer := &peers[i]

		if node, ok := byIP[peer.TailscaleIP]; ok {
			seenNodeIPs[peer.TailscaleIP] = true
			plan.Entries = append(plan.Entries, Entry{
				Classification: Matched,
				Hostname:       node.Hostname,
				TailscaleIP:    node.TailscaleIP,
				Peer:           peer,
				Node:           node,
				ProposedState:  proposedState(node, peer),
			})
			continue
		}

		if node, ok := byHostname[peer.Hostname]; ok {
			// Same hostname, different overlay address: stale DNS or a
			// re-provisioned host. Never guess which.
			plan.Entries = append(plan.Entries, Entry{
				Classification: HostnameConflict,
				Hostname:       peer.Hostname,
				TailscaleIP:    peer.TailscaleIP,
				Peer:           peer,
				Node:           node,
			})
			continue
		}

		if peer.Authorized {
			plan.Entries = append(plan.Entries, Entry{
				Classification: Candidate,
				Hostname:       peer.Hostname,
				TailscaleIP:    peer.TailscaleIP,
				Peer:           peer,
			})
		}
	}

	// Inventory nodes with no visible peer at all.
	for i := range inv.Nodes {
		n := &inv.Nodes[i]
		if seenNodeIPs[n.TailscaleIP] {
			continue
		}
		if conflictedNode(plan, n) {
			continue
		}
		plan.Entries = append(plan.Entries, Entry{
			Classification: UnreachableMember,
			Hostname:       n.Hostname,
			TailscaleIP:    n.TailscaleIP,
			Node:           n,
			ProposedState:  proposeUnreachable(n),
		})
	}

	return plan
}

// proposedState suggests a membership update when a matched peer's online
// status disagrees with the recorded state.
func proposedState(node *inventory.Node, peer *tailnet.Peer) inventory.MembershipState {
	if peer.Online && node.Membership == inventory.StateUnreachable {
		return inventory.StateReady
	}
	if !peer.Online && node.Membership == inventory.StateReady {
		return inventory.StateUnreachable
	}
	return ""
}

func proposeUnreachable(node *inventory.Node) inventory.MembershipState {
	if node.Membership == inventory.StateReady || node.Membership == inventory.StateJoining {
		return inventory.StateUnreachable
	}
	return ""
}

// conflictedNode reports whether the node is already named in a hostname
// conflict entry; such nodes are not additionally reported unreachable.
func conflictedNode(plan Plan, node *inventory.Node) bool {
	for _, e := range plan.Entries {
		if e.Classification == HostnameConflict && e.Node == node {
			return true
		}
	}
	return false
}
