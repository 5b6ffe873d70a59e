package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInventory() *Inventory {
	return &Inventory{
		Settings: Settings{
			ClusterName: "homelab",
			K3sVersion:  "v1.31.4+k3s1",
			PodCIDR:     "10.42.0.0/16",
			ServiceCIDR: "10.43.0.0/16",
		},
		Nodes: []Node{
			{
				Hostname:    "cp1",
				TailscaleIP: "100.64.0.1",
				Role:        RoleControlPlane,
				Membership:  StateReady,
			},
			{
				Hostname:       "w1",
				TailscaleIP:    "100.64.0.2",
				Role:           RoleWorker,
				ReservedCPU:    "2",
				ReservedMemory: "4Gi",
				GPU:            true,
				Labels:         map[string]string{"tier": "gpu"},
				Taints:         []Taint{{Key: "gpu", Value: "true", Effect: EffectNoSchedule}},
				Membership:     StatePending,
			},
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.yml")
	store := NewStore(path)

	require.NoError(t, store.Save(testInventory()))

	loaded, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, "homelab", loaded.Settings.ClusterName)
	assert.Equal(t, "v1.31.4+k3s1", loaded.Settings.K3sVersion)
	require.Len(t, loaded.Nodes, 2)

	cp := loaded.Node("cp1")
	require.NotNil(t, cp)
	assert.Equal(t, RoleControlPlane, cp.Role)
	assert.Equal(t, StateReady, cp.Membership)
	// ansible_host defaults to the tailscale IP when unset
	assert.Equal(t, "100.64.0.1", cp.AnsibleHost)

	w := loaded.Node("w1")
	require.NotNil(t, w)
	assert.Equal(t, "4Gi", w.ReservedMemory)
	assert.True(t, w.GPU)
	assert.Equal(t, map[string]string{"tier": "gpu"}, w.Labels)
	require.Len(t, w.Taints, 1)
	assert.Equal(t, EffectNoSchedule, w.Taints[0].Effect)
}

func TestStoreLoadOrdersControlPlaneFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.yml")
	store := NewStore(path)

	inv := testInventory()
	// Reverse declaration order; Load must still yield control plane first.
	inv.Nodes[0], inv.Nodes[1] = inv.Nodes[1], inv.Nodes[0]
	require.NoError(t, store.Save(inv))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, RoleControlPlane, loaded.Nodes[0].Role)
}

func TestStoreSaveRejectsInvalidWithoutWriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.yml")
	store := NewStore(path)
	require.NoError(t, store.Save(testInventory()))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	bad := testInventory()
	bad.Nodes = append(bad.Nodes, Node{Hostname: "w2", TailscaleIP: "100.64.0.2", Role: RoleWorker})

	err = store.Save(bad)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.NotEmpty(t, schemaErr.Violations)

	// Prior document untouched.
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStoreSaveIsAtomic(t *testing.T) {
	// Two successive saves: a load always observes one complete document,
	// never a mix of both.
	path := filepath.Join(t.TempDir(), "hosts.yml")
	store := NewStore(path)

	first := testInventory()
	require.NoError(t, store.Save(first))

	second := testInventory()
	second.Settings.ClusterName = "homelab-v2"
	second.Nodes[1].ReservedMemory = "8Gi"
	require.NoError(t, store.Save(second))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "homelab-v2", loaded.Settings.ClusterName)
	assert.Equal(t, "8Gi", loaded.Node("w1").ReservedMemory)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".hosts-")
	}
}

func TestStoreSaveClearsStaleSettingsVars(t *testing.T) {
	// Load keeps a raw copy of the all-group vars; clearing a typed setting
	// must remove the corresponding var instead of resurrecting the old value.
	path := filepath.Join(t.TempDir(), "hosts.yml")
	store := NewStore(path)

	inv := testInventory()
	inv.Settings.HA = true
	require.NoError(t, store.Save(inv))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.True(t, loaded.Settings.HA)

	loaded.Settings.HA = false
	loaded.Settings.K3sVersion = ""
	require.NoError(t, store.Save(loaded))

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.False(t, reloaded.Settings.HA)
	assert.Empty(t, reloaded.Settings.K3sVersion)
	assert.NotContains(t, reloaded.GroupVars[ScopeAll], "ha_enabled")
	assert.NotContains(t, reloaded.GroupVars[ScopeAll], "k3s_version")
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.yml"))

	_, err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStorePreservesUnknownVars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.yml")
	store := NewStore(path)

	inv := testInventory()
	inv.GroupVars = map[string]map[string]any{
		ScopeAll:     {"ansible_user": "ops"},
		GroupWorkers: {"extra_packages": []any{"nfs-common"}},
	}
	require.NoError(t, store.Save(inv))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "ops", loaded.GroupVars[ScopeAll]["ansible_user"])
	assert.Contains(t, loaded.GroupVars[GroupWorkers], "extra_packages")
}

func TestInventoryAddRemoveNode(t *testing.T) {
	inv := testInventory()

	err := inv.AddNode(Node{Hostname: "cp1", TailscaleIP: "100.64.0.9", Role: RoleWorker})
	assert.ErrorContains(t, err, "already exists")

	err = inv.AddNode(Node{Hostname: "w2", TailscaleIP: "100.64.0.2", Role: RoleWorker})
	assert.ErrorContains(t, err, "already in use")

	require.NoError(t, inv.AddNode(Node{Hostname: "w2", TailscaleIP: "100.64.0.3", Role: RoleWorker}))
	assert.Len(t, inv.Nodes, 3)

	require.NoError(t, inv.RemoveNode("w2"))
	assert.Nil(t, inv.Node("w2"))

	assert.ErrorContains(t, inv.RemoveNode("w2"), "not found")
}
