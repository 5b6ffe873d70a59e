package config

import (
	"fmt"
	"sort"
	"strconv"
)

// Scope selects which inventory group a configuration key applies to.
type Scope string

const (
	ScopeAll          Scope = "all"
	ScopeControlPlane Scope = "control-plane"
	ScopeWorkers      Scope = "workers"
)

// ParseScope validates a scope name from the CLI.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeAll, ScopeControlPlane, ScopeWorkers:
		return Scope(s), nil
	}
	return "", fmt.Errorf("invalid scope %q: must be one of all, control-plane, workers", s)
}

// KeyType is the value type of a configuration key.
type KeyType string

const (
	TypeString KeyType = "string"
	TypeInt    KeyType = "int"
	TypeBool   KeyType = "bool"
)

// Key is one recognized configuration key. Configuration is a closed schema:
// unknown keys are rejected at the boundary rather than written through as
// free-form strings.
type Key struct {
	Name   string
	Type   KeyType
	Scopes []Scope
}

// allowsScope reports whether the key may be set at the given scope.
func (k Key) allowsScope(scope Scope) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

var keySchema = map[string]Key{
	"cluster_name":    {Name: "cluster_name", Type: TypeString, Scopes: []Scope{ScopeAll}},
	"k3s_version":     {Name: "k3s_version", Type: TypeString, Scopes: []Scope{ScopeAll}},
	"pod_cidr":        {Name: "pod_cidr", Type: TypeString, Scopes: []Scope{ScopeAll}},
	"service_cidr":    {Name: "service_cidr", Type: TypeString, Scopes: []Scope{ScopeAll}},
	"gitops_repo":     {Name: "gitops_repo", Type: TypeString, Scopes: []Scope{ScopeAll}},
	"ha_enabled":      {Name: "ha_enabled", Type: TypeBool, Scopes: []Scope{ScopeAll}},
	"ansible_user":    {Name: "ansible_user", Type: TypeString, Scopes: []Scope{ScopeAll, ScopeControlPlane, ScopeWorkers}},
	"reserved_cpu":    {Name: "reserved_cpu", Type: TypeString, Scopes: []Scope{ScopeControlPlane, ScopeWorkers}},
	"reserved_memory": {Name: "reserved_memory", Type: TypeString, Scopes: []Scope{ScopeControlPlane, ScopeWorkers}},
	"gpu_enabled":     {Name: "gpu_enabled", Type: TypeBool, Scopes: []Scope{ScopeWorkers}},
	"max_pods":        {Name: "max_pods", Type: TypeInt, Scopes: []Scope{ScopeAll, ScopeWorkers}},
}

// LookupKey resolves a key name against the schema and checks the scope.
func LookupKey(name string, scope Scope) (Key, error) {
	key, ok := keySchema[name]
	if !ok {
		return Key{}, fmt.Errorf("unknown configuration key %q (known keys: %v)", name, KnownKeys())
	}
	if !key.allowsScope(scope) {
		return Key{}, fmt.Errorf("key %q cannot be set at scope %q (allowed: %v)", name, scope, key.Scopes)
	}
	return key, nil
}

// ParseValue converts a raw CLI value into the key's declared type.
func (k Key) ParseValue(raw string) (any, error) {
	switch k.Type {
	case TypeString:
		return raw, nil
	case TypeInt:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q expects an integer, got %q", k.Name, raw)
		}
		return i, nil
	case TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q expects a boolean, got %q", k.Name, raw)
		}
		return b, nil
	}
	return nil, fmt.Errorf("key %q has unsupported type %q", k.Name, k.Type)
}

// KnownKeys lists the recognized key names, sorted.
func KnownKeys() []string {
	names := make([]string, 0, len(keySchema))
	for name := range keySchema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InventoryGroup maps a scope to the inventory group name it addresses.
func (s Scope) InventoryGroup() string {
	switch s {
	case ScopeControlPlane:
		return "control_plane"
	case ScopeWorkers:
		return "workers"
	default:
		return "all"
	}
}
