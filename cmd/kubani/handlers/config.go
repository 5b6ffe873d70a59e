package handlers

import (
	"fmt"

	"github.com/kubani/kubani/internal/config"
	"github.com/kubani/kubani/internal/inventory"
)

// ConfigGetOptions names the key to read.
type ConfigGetOptions struct {
	ConfigPath string
	Key        string
	Scope      string
}

// ConfigSetOptions names the key and value to write.
type ConfigSetOptions struct {
	ConfigPath string
	Key        string
	Scope      string
	Value      string
}

// ConfigGet prints one configuration value from the inventory.
func ConfigGet(opts ConfigGetOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	scope, err := config.ParseScope(opts.Scope)
	if err != nil {
		return Exit(ExitValidation, err)
	}
	if _, err := config.LookupKey(opts.Key, scope); err != nil {
		return Exit(ExitValidation, err)
	}

	_, inv, err := loadInventory(cfg)
	if err != nil {
		return err
	}

	value, set := getValue(inv, scope, opts.Key)
	if !set {
		fmt.Fprintf(stdout, "%s is not set at scope %s\n", opts.Key, scope)
		return nil
	}
	fmt.Fprintf(stdout, "%v\n", value)
	return nil
}

// ConfigSet validates and writes one configuration value. The key must be in
// the known schema and allowed at the requested scope; the inventory is
// re-validated before the write lands.
func ConfigSet(opts ConfigSetOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	scope, err := config.ParseScope(opts.Scope)
	if err != nil {
		return Exit(ExitValidation, err)
	}
	key, err := config.LookupKey(opts.Key, scope)
	if err != nil {
		return Exit(ExitValidation, err)
	}
	value, err := key.ParseValue(opts.Value)
	if err != nil {
		return Exit(ExitValidation, err)
	}

	store, inv, err := loadInventory(cfg)
	if err != nil {
		return err
	}

	setValue(inv, scope, opts.Key, value)
	if err := store.Save(inv); err != nil {
		return Exit(ExitValidation, err)
	}

	fmt.Fprintf(stdout, "set %s=%v at scope %s\n", opts.Key, value, scope)
	return nil
}

// getValue reads a key, preferring the typed settings fields for the global
// keys the tool models directly.
func getValue(inv *inventory.Inventory, scope config.Scope, key string) (any, bool) {
	if scope == config.ScopeAll {
		switch key {
		case "cluster_name":
			return inv.Settings.ClusterName, inv.Settings.ClusterName != ""
		case "k3s_version":
			return inv.Settings.K3sVersion, inv.Settings.K3sVersion != ""
		case "pod_cidr":
			return inv.Settings.PodCIDR, inv.Settings.PodCIDR != ""
		case "service_cidr":
			return inv.Settings.ServiceCIDR, inv.Settings.ServiceCIDR != ""
		case "gitops_repo":
			return inv.Settings.GitOpsRepo, inv.Settings.GitOpsRepo != ""
		case "ha_enabled":
			return inv.Settings.HA, true
		}
	}

	vars, ok := inv.GroupVars[scope.InventoryGroup()]
	if !ok {
		return nil, false
	}
	value, ok := vars[key]
	return value, ok
}

// setValue writes a key, keeping the typed settings fields authoritative for
// the global keys they model.
func setValue(inv *inventory.Inventory, scope config.Scope, key string, value any) {
	if scope == config.ScopeAll {
		switch key {
		case "cluster_name":
			inv.Settings.ClusterName = value.(string)
			return
		case "k3s_version":
			inv.Settings.K3sVersion = value.(string)
			return
		case "pod_cidr":
			inv.Settings.PodCIDR = value.(string)
			return
		case "service_cidr":
			inv.Settings.ServiceCIDR = value.(string)
			return
		case "gitops_repo":
			inv.Settings.GitOpsRepo = value.(string)
			return
		case "ha_enabled":
			inv.Settings.HA = value.(bool)
			return
		}
	}

	group := scope.InventoryGroup()
	if inv.GroupVars == nil {
		inv.GroupVars = map[string]map[string]any{}
	}
	if inv.GroupVars[group] == nil {
		inv.GroupVars[group] = map[string]any{}
	}
	inv.GroupVars[group][key] = value
}
