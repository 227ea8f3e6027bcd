package model

import (
	"fmt"
	"sync"
)

// Node is a named signal source in the model. Output is evaluated at
// each simulated time step and produces Dimensions values.
type Node struct {
	Name       string
	Dimensions int
	Output     func(t float64) []float64
}

// Probe records the output of a target node over time.
type Probe struct {
	Name   string
	Target string
	Attr   string
}

// Model is a mutable model definition. Writers are visualization
// components running under the organizer's build lock; readers may be
// payload rendering or a simulator build, so access is synchronized
// here as well.
type Model struct {
	name string

	mu     sync.RWMutex
	nodes  map[string]*Node
	order  []string
	probes map[string]*Probe
}

// New creates an empty model with the given name
func New(name string) *Model {
	return &Model{
		name:   name,
		nodes:  make(map[string]*Node),
		probes: make(map[string]*Probe),
	}
}

// Name returns the model's name
func (m *Model) Name() string {
	return m.name
}

// AddNode adds a node to the model. Adding a node with a name that is
// already present is a caller bug and returns an error.
func (m *Model) AddNode(n *Node) error {
	if n == nil || n.Name == "" {
		return fmt.Errorf("node must have a name")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.nodes[n.Name]; exists {
		return fmt.Errorf("node %q already exists", n.Name)
	}
	m.nodes[n.Name] = n
	m.order = append(m.order, n.Name)
	return nil
}

// RemoveNode removes a node by name. Removing an absent node is a
// no-op so component teardown stays idempotent.
func (m *Model) RemoveNode(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.nodes[name]; !exists {
		return
	}
	delete(m.nodes, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Node returns the named node, or false if absent
func (m *Model) Node(name string) (*Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[name]
	return n, ok
}

// Nodes returns all nodes in insertion order
func (m *Model) Nodes() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()

	nodes := make([]*Node, 0, len(m.order))
	for _, name := range m.order {
		nodes = append(nodes, m.nodes[name])
	}
	return nodes
}

// AddProbe attaches a probe to the model
func (m *Model) AddProbe(p *Probe) error {
	if p == nil || p.Name == "" {
		return fmt.Errorf("probe must have a name")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.probes[p.Name]; exists {
		return fmt.Errorf("probe %q already exists", p.Name)
	}
	if _, exists := m.nodes[p.Target]; !exists {
		return fmt.Errorf("probe target %q does not exist", p.Target)
	}
	m.probes[p.Name] = p
	return nil
}

// RemoveProbe removes a probe by name. Idempotent.
func (m *Model) RemoveProbe(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.probes, name)
}

// Probe returns the named probe, or false if absent
func (m *Model) Probe(name string) (*Probe, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.probes[name]
	return p, ok
}

// Probes returns all probes keyed by name
func (m *Model) Probes() map[string]*Probe {
	m.mu.RLock()
	defer m.mu.RUnlock()

	probes := make(map[string]*Probe, len(m.probes))
	for k, v := range m.probes {
		probes[k] = v
	}
	return probes
}

// Len returns the number of nodes in the model
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}
