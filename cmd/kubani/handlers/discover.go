package handlers

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/kubani/kubani/internal/inventory"
	"github.com/kubani/kubani/internal/reconcile"
	"github.com/kubani/kubani/internal/tailnet"
)

// DiscoverOptions controls peer discovery output.
type DiscoverOptions struct {
	ConfigPath string
	OnlineOnly bool
	Pattern    string
}

// Discover lists overlay peers and classifies them against the inventory.
// Discovery never mutates the inventory: promoting a candidate is a separate
// add-node action.
func Discover(ctx context.Context, opts DiscoverOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	dir := newDiscoverer(cfg.Timeouts.Discovery)
	peers, err := dir.Discover(ctx, tailnet.Filter{
		OnlineOnly:      opts.OnlineOnly,
		HostnamePattern: opts.Pattern,
	})
	if err != nil {
		return Exit(ExitDiscovery, err)
	}

	inv := &inventory.Inventory{}
	store := inventory.NewStore(cfg.InventoryPath)
	if store.Exists() {
		if inv, err = store.Load(); err != nil {
			return Exit(ExitValidation, err)
		}
	}

	plan := reconcile.Diff(inv, peers)
	printPlan(peers, plan)

	if conflicts := plan.Conflicts(); len(conflicts) > 0 {
		for _, entry := range conflicts {
			fmt.Fprintf(stdout, "warning: hostname %s is declared with address %s but discovered at %s\n",
				entry.Hostname, entry.Node.TailscaleIP, entry.Peer.TailscaleIP)
		}
	}
	return nil
}

func printPlan(peers []tailnet.Peer, plan reconcile.Plan) {
	byHostname := map[string]reconcile.Entry{}
	for _, entry := range plan.Entries {
		byHostname[entry.Hostname] = entry
	}

	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HOSTNAME\tADDRESS\tONLINE\tAUTHORIZED\tSTATUS")
	for _, peer := range peers {
		classification := "unknown"
		if entry, ok := byHostname[peer.Hostname]; ok {
			classification = string(entry.Classification)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\n",
			peer.Hostname, peer.TailscaleIP, peer.Online, peer.Authorized, classification)
	}

	// Declared nodes with no corresponding peer.
	for _, entry := range plan.ByClassification(reconcile.UnreachableMember) {
		fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\n",
			entry.Hostname, entry.TailscaleIP, false, false, entry.Classification)
	}
	w.Flush()

	if candidates := plan.Candidates(); len(candidates) > 0 {
		fmt.Fprintf(stdout, "\n%d peer(s) can be added with 'kubani add-node'\n", len(candidates))
	}
}
