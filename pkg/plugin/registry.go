// Package plugin is the registry of node types this module provides. Node
// packages register themselves from init; hosts import them for the side
// effect and list what is available.
package plugin

import (
	"sort"
	"sync"

	"github.com/Sternrassler/netsendo-nodes/pkg/client"
)

// Kind distinguishes action nodes from trigger nodes.
type Kind string

const (
	KindAction  Kind = "action"
	KindTrigger Kind = "trigger"
)

// Descriptor announces one node type.
type Descriptor struct {
	Type     string     `json:"type"`
	Kind     Kind       `json:"kind"`
	Describe func() any `json:"-"`
}

// NodeInfo is a Descriptor resolved for listing.
type NodeInfo struct {
	Type        string `json:"type"`
	Kind        Kind   `json:"kind"`
	Description any    `json:"description"`
}

// Manifest lists everything the package provides.
type Manifest struct {
	Nodes       []NodeInfo              `json:"nodes"`
	Credentials []client.CredentialType `json:"credentials"`
}

var (
	mu       sync.RWMutex
	registry = map[string]Descriptor{}
)

// Register adds or replaces a node type.
func Register(d Descriptor) {
	mu.Lock()
	defer mu.Unlock()
	registry[d.Type] = d
}

// Lookup returns the descriptor for nodeType.
func Lookup(nodeType string) (Descriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := registry[nodeType]
	return d, ok
}

// Types returns the registered node type names, sorted.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// List returns the manifest of registered nodes and the credential type they use.
func List() Manifest {
	m := Manifest{
		Credentials: []client.CredentialType{client.DescribeCredentials()},
	}
	for _, t := range Types() {
		d, _ := Lookup(t)
		info := NodeInfo{Type: d.Type, Kind: d.Kind}
		if d.Describe != nil {
			info.Description = d.Describe()
		}
		m.Nodes = append(m.Nodes, info)
	}
	return m
}
