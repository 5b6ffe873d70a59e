package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Well-known var keys in the global vars block. Anything else is preserved
// verbatim in GroupVars.
const (
	varClusterName = "cluster_name"
	varK3sVersion  = "k3s_version"
	varPodCIDR     = "pod_cidr"
	varServiceCIDR = "service_cidr"
	varGitOpsRepo  = "gitops_repo"
	varHAEnabled   = "ha_enabled"
)

// Group names in the persisted document.
const (
	GroupControlPlane = "control_plane"
	GroupWorkers      = "workers"
	ScopeAll          = "all"
)

// Store loads and saves the inventory file. Writes go through a temp file and
// rename so a concurrent Load never observes a partial document, and a flock
// on a sidecar lock file serializes concurrent savers.
type Store struct {
	path string
}

// NewStore creates a store for the inventory file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the inventory file location.
func (s *Store) Path() string { return s.path }

// Exists reports whether the inventory file is present on disk.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// document mirrors the on-disk Ansible hosts layout.
type document struct {
	All struct {
		Vars     map[string]any   `yaml:"vars,omitempty"`
		Children map[string]group `yaml:"children"`
	} `yaml:"all"`
}

type group struct {
	Hosts map[string]hostEntry `yaml:"hosts,omitempty"`
	Vars  map[string]any       `yaml:"vars,omitempty"`
}

type hostEntry struct {
	AnsibleHost    string            `yaml:"ansible_host"`
	TailscaleIP    string            `yaml:"tailscale_ip"`
	ReservedCPU    string            `yaml:"reserved_cpu,omitempty"`
	ReservedMemory string            `yaml:"reserved_memory,omitempty"`
	GPU            bool              `yaml:"gpu,omitempty"`
	NodeLabels     map[string]string `yaml:"node_labels,omitempty"`
	NodeTaints     []Taint           `yaml:"node_taints,omitempty"`
	Membership     MembershipState   `yaml:"membership_state,omitempty"`
}

// Load reads and parses the inventory file.
func (s *Store) Load() (*Inventory, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("inventory file not found: %s", s.path)
		}
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse inventory file %s: %w", s.path, err)
	}
	if doc.All.Children == nil {
		return nil, fmt.Errorf("inventory file %s has no 'all.children' section", s.path)
	}

	inv := &Inventory{
		GroupVars: map[string]map[string]any{},
	}
	if len(doc.All.Vars) > 0 {
		inv.GroupVars[ScopeAll] = doc.All.Vars
	}
	inv.Settings = settingsFromVars(doc.All.Vars)

	for groupName, role := range map[string]Role{
		GroupControlPlane: RoleControlPlane,
		GroupWorkers:      RoleWorker,
	} {
		grp, ok := doc.All.Children[groupName]
		if !ok {
			continue
		}
		if len(grp.Vars) > 0 {
			inv.GroupVars[groupName] = grp.Vars
		}

		hostnames := make([]string, 0, len(grp.Hosts))
		for hostname := range grp.Hosts {
			hostnames = append(hostnames, hostname)
		}
		sort.Strings(hostnames)

		for _, hostname := range hostnames {
			h := grp.Hosts[hostname]
			membership := h.Membership
			if membership == "" {
				membership = StatePending
			}
			inv.Nodes = append(inv.Nodes, Node{
				Hostname:       hostname,
				AnsibleHost:    h.AnsibleHost,
				TailscaleIP:    h.TailscaleIP,
				Role:           role,
				ReservedCPU:    h.ReservedCPU,
				ReservedMemory: h.ReservedMemory,
				GPU:            h.GPU,
				Labels:         h.NodeLabels,
				Taints:         h.NodeTaints,
				Membership:     membership,
			})
		}
	}

	// Control plane first so callers iterating Nodes see role ordering.
	sort.SliceStable(inv.Nodes, func(i, j int) bool {
		return inv.Nodes[i].Role == RoleControlPlane && inv.Nodes[j].Role != RoleControlPlane
	})

	return inv, nil
}

// Save validates and atomically writes the inventory. The prior file is left
// untouched if validation or the write fails.
func (s *Store) Save(inv *Inventory) error {
	if violations := Validate(inv); len(violations) > 0 {
		return &SchemaError{Violations: violations}
	}

	unlock, err := acquireLock(s.path + ".lock")
	if err != nil {
		return fmt.Errorf("failed to lock inventory: %w", err)
	}
	defer unlock()

	data, err := yaml.Marshal(s.toDocument(inv))
	if err != nil {
		return fmt.Errorf("failed to marshal inventory: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create inventory directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".hosts-*.yml")
	if err != nil {
		return fmt.Errorf("failed to create temp inventory file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write inventory: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync inventory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp inventory file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set inventory permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace inventory file: %w", err)
	}

	return nil
}

func (s *Store) toDocument(inv *Inventory) *document {
	doc := &document{}
	doc.All.Children = map[string]group{}

	allVars := map[string]any{}
	for k, v := range inv.GroupVars[ScopeAll] {
		allVars[k] = v
	}
	applySettings(allVars, inv.Settings)
	if len(allVars) > 0 {
		doc.All.Vars = allVars
	}

	for groupName, role := range map[string]Role{
		GroupControlPlane: RoleControlPlane,
		GroupWorkers:      RoleWorker,
	} {
		grp := group{Hosts: map[string]hostEntry{}}
		if vars := inv.GroupVars[groupName]; len(vars) > 0 {
			grp.Vars = vars
		}
		for _, n := range inv.NodesByRole(role) {
			ansibleHost := n.AnsibleHost
			if ansibleHost == "" {
				ansibleHost = n.TailscaleIP
			}
			grp.Hosts[n.Hostname] = hostEntry{
				AnsibleHost:    ansibleHost,
				TailscaleIP:    n.TailscaleIP,
				ReservedCPU:    n.ReservedCPU,
				ReservedMemory: n.ReservedMemory,
				GPU:            n.GPU,
				NodeLabels:     n.Labels,
				NodeTaints:     n.Taints,
				Membership:     n.Membership,
			}
		}
		doc.All.Children[groupName] = grp
	}

	return doc
}

func settingsFromVars(vars map[string]any) Settings {
	var s Settings
	if v, ok := vars[varClusterName].(string); ok {
		s.ClusterName = v
	}
	if v, ok := vars[varK3sVersion].(string); ok {
		s.K3sVersion = v
	}
	if v, ok := vars[varPodCIDR].(string); ok {
		s.PodCIDR = v
	}
	if v, ok := vars[varServiceCIDR].(string); ok {
		s.ServiceCIDR = v
	}
	if v, ok := vars[varGitOpsRepo].(string); ok {
		s.GitOpsRepo = v
	}
	if v, ok := vars[varHAEnabled].(bool); ok {
		s.HA = v
	}
	return s
}

// applySettings writes the typed settings over the all-group vars. The typed
// fields own these keys: a cleared setting deletes the var, otherwise a stale
// copy carried over from Load would survive the save.
func applySettings(vars map[string]any, s Settings) {
	setOrClear(vars, varClusterName, s.ClusterName)
	setOrClear(vars, varK3sVersion, s.K3sVersion)
	setOrClear(vars, varPodCIDR, s.PodCIDR)
	setOrClear(vars, varServiceCIDR, s.ServiceCIDR)
	setOrClear(vars, varGitOpsRepo, s.GitOpsRepo)
	if s.HA {
		vars[varHAEnabled] = true
	} else {
		delete(vars, varHAEnabled)
	}
}

func setOrClear(vars map[string]any, key, value string) {
	if value == "" {
		delete(vars, key)
		return
	}
	vars[key] = value
}
