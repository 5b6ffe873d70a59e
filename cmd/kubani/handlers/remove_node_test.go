package handlers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubani/kubani/internal/inventory"
)

func TestRemoveNodeDrainsAndRemoves(t *testing.T) {
	cluster := &fakeCluster{}
	cfgPath, out := testEnv(t, &fakeDiscoverer{}, &fakeExec{}, cluster, nil)
	seedInventory(t, cfgPath, controlPlaneNode(), workerNode("w1", "100.64.0.2"))

	err := RemoveNode(context.Background(), RemoveNodeOptions{
		ConfigPath: cfgPath,
		Hostname:   "w1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"w1"}, cluster.cordoned)
	assert.Equal(t, []string{"w1"}, cluster.drained)
	assert.Equal(t, []string{"w1"}, cluster.deleted)
	assert.Contains(t, out.String(), "removed w1")

	invPath := filepath.Join(filepath.Dir(cfgPath), "hosts.yml")
	inv, err := inventory.NewStore(invPath).Load()
	require.NoError(t, err)
	assert.Nil(t, inv.Node("w1"))
	assert.NotNil(t, inv.Node("cp1"))
}

func TestRemoveNodeKeepsInventoryOnTeardownFailure(t *testing.T) {
	exec := &fakeExec{fail: map[string]string{"w1": "umount failed"}}
	cluster := &fakeCluster{}
	cfgPath, _ := testEnv(t, &fakeDiscoverer{}, exec, cluster, nil)
	seedInventory(t, cfgPath, controlPlaneNode(), workerNode("w1", "100.64.0.2"))

	err := RemoveNode(context.Background(), RemoveNodeOptions{
		ConfigPath: cfgPath,
		Hostname:   "w1",
	})
	require.Error(t, err)
	assert.Equal(t, ExitTotalFailure, ExitCode(err))

	// The node object was not deleted and the inventory still lists it.
	assert.Empty(t, cluster.deleted)
	invPath := filepath.Join(filepath.Dir(cfgPath), "hosts.yml")
	inv, loadErr := inventory.NewStore(invPath).Load()
	require.NoError(t, loadErr)
	assert.NotNil(t, inv.Node("w1"))
}

func TestRemoveNodeUnknownHost(t *testing.T) {
	cfgPath, _ := testEnv(t, &fakeDiscoverer{}, &fakeExec{}, &fakeCluster{}, nil)
	seedInventory(t, cfgPath, controlPlaneNode())

	err := RemoveNode(context.Background(), RemoveNodeOptions{
		ConfigPath: cfgPath,
		Hostname:   "ghost",
	})
	require.Error(t, err)
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestRemoveNodeSkipDrain(t *testing.T) {
	cluster := &fakeCluster{}
	cfgPath, _ := testEnv(t, &fakeDiscoverer{}, &fakeExec{}, cluster, nil)
	seedInventory(t, cfgPath, controlPlaneNode(), workerNode("w1", "100.64.0.2"))

	err := RemoveNode(context.Background(), RemoveNodeOptions{
		ConfigPath: cfgPath,
		Hostname:   "w1",
		SkipDrain:  true,
	})
	require.NoError(t, err)
	assert.Empty(t, cluster.cordoned)
	assert.Empty(t, cluster.drained)
}
