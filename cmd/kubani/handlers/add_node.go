package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/kubani/kubani/internal/inventory"
	"github.com/kubani/kubani/internal/tailnet"
)

// AddNodeOptions describes the node to promote into the inventory.
type AddNodeOptions struct {
	ConfigPath     string
	Hostname       string
	Role           string
	GPU            bool
	ReservedCPU    string
	ReservedMemory string
	Labels         []string
	Taints         []string
	Provision      bool
}

// AddNode promotes a discovered peer into the durable inventory. The peer
// must be visible and authorized on the overlay network; its overlay address
// is taken from discovery, never typed by hand.
func AddNode(ctx context.Context, opts AddNodeOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	role := inventory.Role(opts.Role)
	if !role.Valid() {
		return Exit(ExitValidation, fmt.Errorf("invalid role %q: must be control-plane or worker", opts.Role))
	}

	labels, err := parseLabels(opts.Labels)
	if err != nil {
		return Exit(ExitValidation, err)
	}

	taints, err := parseTaints(opts.Taints)
	if err != nil {
		return Exit(ExitValidation, err)
	}

	dir := newDiscoverer(cfg.Timeouts.Discovery)
	peers, err := dir.Discover(ctx, tailnet.Filter{})
	if err != nil {
		return Exit(ExitDiscovery, err)
	}

	peer := findPeer(peers, opts.Hostname)
	if peer == nil {
		return Exit(ExitValidation, fmt.Errorf("host %q is not visible on the overlay network", opts.Hostname))
	}
	if !peer.Authorized {
		return Exit(ExitValidation, fmt.Errorf("host %q is not authorized on the overlay network", opts.Hostname))
	}

	store := inventory.NewStore(cfg.InventoryPath)
	inv := &inventory.Inventory{}
	if store.Exists() {
		if inv, err = store.Load(); err != nil {
			return Exit(ExitValidation, err)
		}
	}

	node := inventory.Node{
		Hostname:       peer.Hostname,
		AnsibleHost:    peer.TailscaleIP,
		TailscaleIP:    peer.TailscaleIP,
		Role:           role,
		GPU:            opts.GPU,
		ReservedCPU:    opts.ReservedCPU,
		ReservedMemory: opts.ReservedMemory,
		Labels:         labels,
		Taints:         taints,
		Membership:     inventory.StatePending,
	}
	if err := inv.AddNode(node); err != nil {
		return Exit(ExitValidation, err)
	}
	if err := store.Save(inv); err != nil {
		return Exit(ExitValidation, err)
	}

	fmt.Fprintf(stdout, "added %s (%s) as %s\n", node.Hostname, node.TailscaleIP, node.Role)

	if !opts.Provision {
		fmt.Fprintf(stdout, "run 'kubani provision --limit %s' to provision it\n", node.Hostname)
		return nil
	}
	return Provision(ctx, ProvisionOptions{
		ConfigPath: opts.ConfigPath,
		Limit:      []string{node.Hostname},
		addNode:    true,
	})
}

func findPeer(peers []tailnet.Peer, hostname string) *tailnet.Peer {
	for i := range peers {
		if peers[i].Hostname == hostname {
			return &peers[i]
		}
	}
	return nil
}

func parseLabels(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	labels := make(map[string]string, len(raw))
	for _, pair := range raw {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid label %q: expected key=value", pair)
		}
		labels[key] = value
	}
	return labels, nil
}

// parseTaints parses key=value:Effect taint declarations.
func parseTaints(raw []string) ([]inventory.Taint, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	taints := make([]inventory.Taint, 0, len(raw))
	for _, spec := range raw {
		pair, effect, found := strings.Cut(spec, ":")
		if !found {
			return nil, fmt.Errorf("invalid taint %q: expected key=value:Effect", spec)
		}
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid taint %q: expected key=value:Effect", spec)
		}
		t := inventory.Taint{Key: key, Value: value, Effect: inventory.TaintEffect(effect)}
		if !t.Effect.Valid() {
			return nil, fmt.Errorf("invalid taint effect %q: must be NoSchedule, PreferNoSchedule or NoExecute", effect)
		}
		taints = append(taints, t)
	}
	return taints, nil
}
