// Package tailnet discovers peers visible on the Tailscale overlay network.
//
// Discovery is a pure read against the local Tailscale daemon: it never
// mutates the inventory, and peers that are currently offline are reported
// with Online=false rather than omitted so callers can distinguish "never
// joined" from "joined but down".
package tailnet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// ErrUnavailable indicates the Tailscale control plane could not be queried
// (daemon not running, binary missing, or the status call timed out).
var ErrUnavailable = errors.New("tailscale is unavailable")

// ErrNotAuthenticated indicates the local Tailscale client is not logged in.
var ErrNotAuthenticated = errors.New("tailscale is not authenticated")

// Peer is an ephemeral discovery result: a host visible on the overlay
// network, not necessarily a cluster member.
type Peer struct {
	Hostname    string
	TailscaleIP string
	Online      bool
	Authorized  bool
	OS          string
	Self        bool
}

func (p Peer) String() string {
	status := "offline"
	if p.Online {
		status = "online"
	}
	return fmt.Sprintf("%s (%s) - %s", p.Hostname, p.TailscaleIP, status)
}

// Filter narrows a discovery result.
type Filter struct {
	OnlineOnly      bool
	HostnamePattern string
}

// Directory queries the Tailscale daemon for visible peers.
type Directory struct {
	// status runs `tailscale status --json` and returns its stdout.
	// Replaceable for tests.
	status  func(ctx context.Context) ([]byte, error)
	timeout time.Duration
}

// NewDirectory creates a Directory backed by the tailscale CLI.
func NewDirectory(timeout time.Duration) *Directory {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &Directory{timeout: timeout}
	d.status = d.runStatusCommand
	return d
}

// statusDoc mirrors the subset of `tailscale status --json` output we read.
type statusDoc struct {
	BackendState string                `json:"BackendState"`
	Self         *peerStatus           `json:"Self"`
	Peer         map[string]peerStatus `json:"Peer"`
}

type peerStatus struct {
	HostName     string   `json:"HostName"`
	DNSName      string   `json:"DNSName"`
	TailscaleIPs []string `json:"TailscaleIPs"`
	Online       bool     `json:"Online"`
	Expired      bool     `json:"Expired"`
	OS           string   `json:"OS"`
}

// Discover queries the overlay network and returns all visible peers,
// including the local machine, sorted by hostname.
func (d *Directory) Discover(ctx context.Context, filter Filter) ([]Peer, error) {
	out, err := d.status(ctx)
	if err != nil {
		return nil, err
	}

	var doc statusDoc
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid status output: %v", ErrUnavailable, err)
	}

	switch doc.BackendState {
	case "Running":
	case "NeedsLogin", "NeedsMachineAuth":
		return nil, fmt.Errorf("%w: backend state %s (run: tailscale up)", ErrNotAuthenticated, doc.BackendState)
	default:
		return nil, fmt.Errorf("%w: backend state %s", ErrUnavailable, doc.BackendState)
	}

	var peers []Peer
	for _, p := range doc.Peer {
		peer, ok := toPeer(p, false)
		if !ok {
			continue
		}
		peers = append(peers, peer)
	}
	if doc.Self != nil {
		if self, ok := toPeer(*doc.Self, true); ok {
			self.Online = true
			peers = append(peers, self)
		}
	}

	peers = applyFilter(peers, filter)
	sort.Slice(peers, func(i, j int) bool { return peers[i].Hostname < peers[j].Hostname })
	return peers, nil
}

func toPeer(p peerStatus, self bool) (Peer, bool) {
	if len(p.TailscaleIPs) == 0 {
		return Peer{}, false
	}
	hostname := p.HostName
	if p.DNSName != "" {
		hostname = strings.SplitN(p.DNSName, ".", 2)[0]
	}
	if hostname == "" {
		return Peer{}, false
	}
	return Peer{
		Hostname:    hostname,
		TailscaleIP: p.TailscaleIPs[0],
		Online:      p.Online,
		Authorized:  !p.Expired,
		OS:          p.OS,
		Self:        self,
	}, true
}

func applyFilter(peers []Peer, filter Filter) []Peer {
	if !filter.OnlineOnly && filter.HostnamePattern == "" {
		return peers
	}
	pattern := strings.ToLower(filter.HostnamePattern)
	var out []Peer
	for _, p := range peers {
		if filter.OnlineOnly && !p.Online {
			continue
		}
		if pattern != "" && !strings.Contains(strings.ToLower(p.Hostname), pattern) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (d *Directory) runStatusCommand(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "tailscale", "status", "--json")
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: status command timed out after %v", ErrUnavailable, d.timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if strings.Contains(strings.ToLower(stderr), "logged out") {
				return nil, fmt.Errorf("%w: %s", ErrNotAuthenticated, stderr)
			}
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, stderr)
		}
		return nil, fmt.Errorf("%w: %v (is tailscale installed?)", ErrUnavailable, err)
	}
	return out, nil
}
