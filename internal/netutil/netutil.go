// Package netutil provides overlay-network address helpers.
package netutil

import (
	"context"
	"fmt"
	"net"
	"time"
)

// overlayCIDR is the Tailscale CGNAT range all overlay addresses live in.
const overlayCIDR = "100.64.0.0/10"

var overlayNet *net.IPNet

func init() {
	_, overlayNet, _ = net.ParseCIDR(overlayCIDR)
}

// InOverlayRange reports whether ip is a valid address inside the overlay
// network's CGNAT range.
func InOverlayRange(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && overlayNet.Contains(parsed)
}

// WaitForPort waits for a TCP port on the host to accept connections. Used
// as a cheap reachability probe before dispatching work to a node.
func WaitForPort(ctx context.Context, ip string, port int, timeout time.Duration) error {
	address := net.JoinHostPort(ip, fmt.Sprintf("%d", port))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		conn, err := net.DialTimeout("tcp", address, 2*time.Second)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("timeout waiting for %s", address)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
