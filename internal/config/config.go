// Package config holds the session configuration threaded explicitly through
// every component constructor. There is no ambient global: the CLI builds one
// Config at startup and passes it down.
package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the per-invocation session configuration: file locations,
// concurrency bounds and timeouts.
type Config struct {
	// InventoryPath is the Ansible hosts file holding the fleet inventory.
	InventoryPath string `mapstructure:"inventory_path"`
	// PlaybookDir contains the playbooks the executor runs.
	PlaybookDir string `mapstructure:"playbook_dir"`
	// RunsDir stores persisted provisioning run state for audit and resume.
	RunsDir string `mapstructure:"runs_dir"`
	// KubeconfigPath is the kubeconfig for the live cluster API, reachable
	// over the overlay network via the control-plane node's overlay address.
	KubeconfigPath string `mapstructure:"kubeconfig_path"`
	// Concurrency bounds the number of nodes dispatched in parallel within a
	// provisioning run.
	Concurrency int `mapstructure:"concurrency"`

	Timeouts *Timeouts `mapstructure:"-"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		InventoryPath:  "ansible/inventory/hosts.yml",
		PlaybookDir:    "ansible/playbooks",
		RunsDir:        ".kubani/runs",
		KubeconfigPath: defaultKubeconfig(),
		Concurrency:    4,
		Timeouts:       LoadTimeouts(),
	}
}

// LoadFile reads the session configuration from a YAML file, applying
// defaults for anything not set.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg := Default()
	if err := mapstructure.Decode(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}

	return cfg, nil
}

func defaultKubeconfig() string {
	if env := os.Getenv("KUBECONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "kubeconfig"
	}
	return home + "/.kube/config"
}
