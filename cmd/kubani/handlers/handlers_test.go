package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kubani/kubani/internal/config"
	"github.com/kubani/kubani/internal/executor"
	"github.com/kubani/kubani/internal/inventory"
	"github.com/kubani/kubani/internal/k8s"
	"github.com/kubani/kubani/internal/tailnet"
)

// fakeDiscoverer returns canned peers or a canned error.
type fakeDiscoverer struct {
	peers []tailnet.Peer
	err   error
}

func (f *fakeDiscoverer) Discover(_ context.Context, filter tailnet.Filter) ([]tailnet.Peer, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []tailnet.Peer
	for _, p := range f.peers {
		if filter.OnlineOnly && !p.Online {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// fakeExec succeeds everywhere except the hostnames listed in fail.
type fakeExec struct {
	mu   sync.Mutex
	jobs []executor.Job
	fail map[string]string
}

func (f *fakeExec) Run(_ context.Context, job executor.Job) ([]executor.StepResult, error) {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()

	if detail, ok := f.fail[job.Hostname]; ok {
		return []executor.StepResult{
			{Step: "install k3s", Status: executor.StepFailed, Detail: detail},
		}, nil
	}
	return []executor.StepResult{
		{Step: "install k3s", Status: executor.StepChanged},
	}, nil
}

// fakeCluster implements ClusterClient in-memory.
type fakeCluster struct {
	mu       sync.Mutex
	cordoned []string
	drained  []string
	deleted  []string
	statuses []k8s.NodeStatus
}

func (f *fakeCluster) ListNodeStatus(context.Context) ([]k8s.NodeStatus, error) {
	return f.statuses, nil
}

func (f *fakeCluster) PodCountsByNode(context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}

func (f *fakeCluster) NodeUsageByName(context.Context) (map[string]k8s.NodeUsage, error) {
	return nil, errors.New("metrics API not available")
}

func (f *fakeCluster) ListPods(context.Context, string) ([]k8s.PodInfo, error) {
	return nil, nil
}

func (f *fakeCluster) WaitForNodeReady(_ context.Context, _ string, _ time.Duration) error {
	return nil
}

func (f *fakeCluster) CordonNode(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cordoned = append(f.cordoned, name)
	return nil
}

func (f *fakeCluster) DrainNode(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drained = append(f.drained, name)
	return nil
}

func (f *fakeCluster) DeleteNode(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

// testEnv swaps the factory variables for fakes and restores them afterward.
// It returns the config path to pass into handlers plus the captured output.
func testEnv(t *testing.T, disc Discoverer, exec executor.Executor, cluster ClusterClient, clusterErr error) (string, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	invPath := filepath.Join(dir, "hosts.yml")
	cfgPath := filepath.Join(dir, "kubani.yaml")

	cfgYAML := fmt.Sprintf(
		"inventory_path: %s\nplaybook_dir: %s\nruns_dir: %s\nkubeconfig_path: %s\n",
		invPath, dir, filepath.Join(dir, "runs"), filepath.Join(dir, "kubeconfig"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o644))

	origDisc, origExec, origClient, origProbe, origOut := newDiscoverer, newExecutor, newClusterClient, probeNode, stdout
	t.Cleanup(func() {
		newDiscoverer, newExecutor, newClusterClient, probeNode, stdout = origDisc, origExec, origClient, origProbe, origOut
	})
	probeNode = func(context.Context, string) error { return nil }

	newDiscoverer = func(time.Duration) Discoverer { return disc }
	newExecutor = func(*config.Config) executor.Executor { return exec }
	newClusterClient = func(string) (ClusterClient, error) {
		if clusterErr != nil {
			return nil, clusterErr
		}
		return cluster, nil
	}

	out := &bytes.Buffer{}
	stdout = out
	return cfgPath, out
}

// seedInventory writes a valid one-control-plane inventory next to cfgPath.
func seedInventory(t *testing.T, cfgPath string, nodes ...inventory.Node) {
	t.Helper()

	invPath := filepath.Join(filepath.Dir(cfgPath), "hosts.yml")
	inv := &inventory.Inventory{
		Settings: inventory.Settings{ClusterName: "homelab"},
		Nodes:    nodes,
	}
	require.NoError(t, inventory.NewStore(invPath).Save(inv))
}

func controlPlaneNode() inventory.Node {
	return inventory.Node{
		Hostname:    "cp1",
		TailscaleIP: "100.64.0.1",
		Role:        inventory.RoleControlPlane,
		Membership:  inventory.StateReady,
	}
}

func workerNode(hostname, ip string) inventory.Node {
	return inventory.Node{
		Hostname:    hostname,
		TailscaleIP: ip,
		Role:        inventory.RoleWorker,
		Membership:  inventory.StatePending,
	}
}
