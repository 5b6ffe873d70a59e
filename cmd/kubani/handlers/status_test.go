package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubani/kubani/internal/k8s"
)

func TestStatusPrintsSnapshot(t *testing.T) {
	cluster := &fakeCluster{statuses: []k8s.NodeStatus{
		{Name: "cp1", Ready: true, KubeletVersion: "v1.31.4+k3s1"},
	}}
	cfgPath, out := testEnv(t, &fakeDiscoverer{}, &fakeExec{}, cluster, nil)
	seedInventory(t, cfgPath, controlPlaneNode(), workerNode("w1", "100.64.0.2"))

	err := Status(context.Background(), StatusOptions{ConfigPath: cfgPath})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "cluster: homelab")
	assert.Contains(t, out.String(), "cp1")
	assert.Contains(t, out.String(), "Ready")
	// The worker is declared but not visible through the API.
	assert.Contains(t, out.String(), "w1")
	assert.Contains(t, out.String(), "Unknown")
}

func TestStatusDegradesWithoutClusterAPI(t *testing.T) {
	cfgPath, out := testEnv(t, &fakeDiscoverer{}, &fakeExec{}, nil, errors.New("no kubeconfig"))
	seedInventory(t, cfgPath, controlPlaneNode())

	err := Status(context.Background(), StatusOptions{ConfigPath: cfgPath})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "unreachable")
	assert.Contains(t, out.String(), "Unknown")
}
