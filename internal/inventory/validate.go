package inventory

import (
	"fmt"
	"net"
	"strings"

	"github.com/kubani/kubani/internal/netutil"
)

// Violation describes a single schema constraint failure, naming the
// offending field and the constraint it broke.
type Violation struct {
	Field      string
	Constraint string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Constraint)
}

// SchemaError aggregates all violations found during validation. Save returns
// it before any durable mutation takes place.
type SchemaError struct {
	Violations []Violation
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("inventory validation failed: %s", strings.Join(msgs, "; "))
}

// Validate checks the inventory against its schema invariants and returns all
// violations found. An empty slice means the inventory is valid.
//
// Enforced rules:
//   - hostname, tailscale_ip and role are required per node; all other node
//     fields are optional
//   - hostnames follow RFC 1123 and are unique
//   - tailscale IPs parse as IP addresses, sit in the 100.64.0.0/10 overlay
//     range and are unique
//   - at most one control-plane node unless HA mode is declared
//   - taint effects are one of NoSchedule, PreferNoSchedule, NoExecute
func Validate(inv *Inventory) []Violation {
	var violations []Violation

	seenHostnames := make(map[string]bool)
	seenIPs := make(map[string]string)
	controlPlanes := 0

	for _, n := range inv.Nodes {
		field := fmt.Sprintf("nodes[%s]", n.Hostname)

		if n.Hostname == "" {
			violations = append(violations, Violation{Field: "nodes", Constraint: "hostname is required"})
		} else {
			if len(n.Hostname) > 253 {
				violations = append(violations, Violation{Field: field + ".hostname", Constraint: "must not exceed 253 characters"})
			} else if !hostnamePattern.MatchString(n.Hostname) {
				violations = append(violations, Violation{Field: field + ".hostname", Constraint: "must be a valid RFC 1123 hostname"})
			}
			if seenHostnames[n.Hostname] {
				violations = append(violations, Violation{Field: field + ".hostname", Constraint: "duplicate hostname"})
			}
			seenHostnames[n.Hostname] = true
		}

		if n.TailscaleIP == "" {
			violations = append(violations, Violation{Field: field + ".tailscale_ip", Constraint: "is required"})
		} else if net.ParseIP(n.TailscaleIP) == nil {
			violations = append(violations, Violation{Field: field + ".tailscale_ip", Constraint: fmt.Sprintf("%q is not a valid IP address", n.TailscaleIP)})
		} else if !netutil.InOverlayRange(n.TailscaleIP) {
			violations = append(violations, Violation{Field: field + ".tailscale_ip", Constraint: fmt.Sprintf("%s is outside the overlay range %s", n.TailscaleIP, "100.64.0.0/10")})
		} else if owner, dup := seenIPs[n.TailscaleIP]; dup {
			violations = append(violations, Violation{Field: field + ".tailscale_ip", Constraint: fmt.Sprintf("%s already in use by node %q", n.TailscaleIP, owner)})
		} else {
			seenIPs[n.TailscaleIP] = n.Hostname
		}

		if !n.Role.Valid() {
			violations = append(violations, Violation{Field: field + ".role", Constraint: fmt.Sprintf("must be %q or %q, got %q", RoleControlPlane, RoleWorker, n.Role)})
		}
		if n.Role == RoleControlPlane {
			controlPlanes++
		}

		for i, t := range n.Taints {
			taintField := fmt.Sprintf("%s.taints[%d]", field, i)
			if t.Key == "" {
				violations = append(violations, Violation{Field: taintField + ".key", Constraint: "is required"})
			}
			if !t.Effect.Valid() {
				violations = append(violations, Violation{
					Field:      taintField + ".effect",
					Constraint: fmt.Sprintf("must be one of NoSchedule, PreferNoSchedule, NoExecute, got %q", t.Effect),
				})
			}
		}
	}

	if controlPlanes > 1 && !inv.Settings.HA {
		violations = append(violations, Violation{
			Field:      "control_plane",
			Constraint: fmt.Sprintf("found %d control-plane nodes but HA mode is not declared", controlPlanes),
		})
	}

	return violations
}
