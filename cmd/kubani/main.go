// Package main is the entry point for the kubani CLI.
//
// kubani manages a small fleet of machines that double as workstations and
// Kubernetes nodes, reachable over a Tailscale mesh. It discovers overlay
// peers, reconciles them against a declarative Ansible inventory, drives
// idempotent multi-node provisioning and reports live cluster state.
//
// Commands: discover, add-node, remove-node, provision, status, config.
//
// For detailed usage information, run:
//
//	kubani --help
package main

import (
	"fmt"
	"os"

	"github.com/kubani/kubani/cmd/kubani/commands"
	"github.com/kubani/kubani/cmd/kubani/handlers"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(handlers.ExitCode(err))
	}
}
