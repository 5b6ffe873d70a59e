// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/kubani/kubani/internal/config"
	"github.com/kubani/kubani/internal/executor"
	"github.com/kubani/kubani/internal/inventory"
	"github.com/kubani/kubani/internal/k8s"
	"github.com/kubani/kubani/internal/netutil"
	"github.com/kubani/kubani/internal/snapshot"
	"github.com/kubani/kubani/internal/tailnet"
)

// defaultConfigFile is looked up in the working directory when --config is
// not given.
const defaultConfigFile = "kubani.yaml"

// Discoverer queries the overlay network for visible peers.
type Discoverer interface {
	Discover(ctx context.Context, filter tailnet.Filter) ([]tailnet.Peer, error)
}

// ClusterClient is the live cluster API surface handlers need. *k8s.Client
// satisfies it.
type ClusterClient interface {
	snapshot.ClusterAPI
	WaitForNodeReady(ctx context.Context, name string, timeout time.Duration) error
	CordonNode(ctx context.Context, name string) error
	DrainNode(ctx context.Context, name string) error
	DeleteNode(ctx context.Context, name string) error
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads the session config from a file.
	loadConfigFile = config.LoadFile

	// newDiscoverer creates an overlay peer directory.
	newDiscoverer = func(timeout time.Duration) Discoverer {
		return tailnet.NewDirectory(timeout)
	}

	// newExecutor creates the external provisioning executor.
	newExecutor = func(cfg *config.Config) executor.Executor {
		return executor.NewAnsibleExecutor(cfg.InventoryPath, cfg.PlaybookDir)
	}

	// newClusterClient creates a live cluster API client.
	newClusterClient = func(kubeconfigPath string) (ClusterClient, error) {
		client, err := k8s.NewClient(kubeconfigPath)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	// probeNode checks a node's overlay address accepts SSH before work is
	// dispatched to it.
	probeNode = func(ctx context.Context, ip string) error {
		return netutil.WaitForPort(ctx, ip, sshPort, probeTimeout)
	}

	// stdout is the destination for user-facing output.
	stdout io.Writer = os.Stdout
)

const (
	sshPort      = 22
	probeTimeout = 10 * time.Second
)

// loadConfig resolves the session configuration: an explicit --config path,
// then kubani.yaml in the working directory, then built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := loadConfigFile(path)
		if err != nil {
			return nil, Exit(ExitValidation, err)
		}
		return cfg, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		cfg, err := loadConfigFile(defaultConfigFile)
		if err != nil {
			return nil, Exit(ExitValidation, err)
		}
		return cfg, nil
	}
	return config.Default(), nil
}

// loadInventory reads the fleet inventory, mapping failures to the
// validation exit code.
func loadInventory(cfg *config.Config) (*inventory.Store, *inventory.Inventory, error) {
	store := inventory.NewStore(cfg.InventoryPath)
	inv, err := store.Load()
	if err != nil {
		return nil, nil, Exit(ExitValidation, err)
	}
	return store, inv, nil
}
