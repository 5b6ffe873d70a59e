package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "ansible/inventory/hosts.yml", cfg.InventoryPath)
	assert.Equal(t, 4, cfg.Concurrency)
	require.NotNil(t, cfg.Timeouts)
	assert.Equal(t, 5*time.Minute, cfg.Timeouts.NodeReady)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kubani.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
inventory_path: /srv/fleet/hosts.yml
concurrency: 2
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/fleet/hosts.yml", cfg.InventoryPath)
	assert.Equal(t, 2, cfg.Concurrency)
	// Defaults still applied for unset fields.
	assert.Equal(t, "ansible/playbooks", cfg.PlaybookDir)
}

func TestLoadFileRejectsBadConcurrency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kubani.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: 0\n"), 0o644))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "concurrency")
}

func TestLoadTimeoutsFromEnv(t *testing.T) {
	t.Setenv("KUBANI_TIMEOUT_NODE_READY", "90s")
	t.Setenv("KUBANI_RETRY_MAX_ATTEMPTS", "2")
	t.Setenv("KUBANI_TIMEOUT_EXECUTOR", "garbage")

	tm := LoadTimeouts()
	assert.Equal(t, 90*time.Second, tm.NodeReady)
	assert.Equal(t, 2, tm.RetryMaxAttempts)
	// Invalid values fall back to the default.
	assert.Equal(t, 30*time.Minute, tm.Executor)
}
