package model

import (
	"fmt"
	"sync"

	"github.com/cchan987/nengo-viz/pkg/buffer"
)

// Simulator is the engine boundary. A simulator is built once from a
// model definition and then advanced in fixed increments of simulated
// time. Run is treated as a bounded-duration external call.
type Simulator interface {
	// Run advances the simulation by d simulated seconds
	Run(d float64) error

	// Time returns the current simulated time in seconds
	Time() float64

	// Close releases any engine resources
	Close() error
}

// Factory builds a Simulator from a model definition and time step.
// The organizer holds one factory per configured model; a factory
// error is fatal to the session that triggered the build.
type Factory func(m *Model, dt float64) (Simulator, error)

// sampleHistory bounds per-probe sample retention. A session can run
// for hours; only the recent window is ever shown.
const sampleHistory = 16384

// basicSimulator is a reference engine: it snapshots the model's nodes
// and probes at build time, evaluates node outputs each step, and
// records probe samples. It exists so the repo runs end-to-end without
// an external engine.
type basicSimulator struct {
	dt     float64
	nodes  []*Node
	probes []*Probe

	mu      sync.Mutex
	t       float64
	samples map[string]*buffer.Ring[float64]
}

// DefaultFactory builds the reference simulator
func DefaultFactory(m *Model, dt float64) (Simulator, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %g", dt)
	}

	// Snapshot at build time: later model mutations (the visualization
	// strip) must not affect a running simulation.
	sim := &basicSimulator{
		dt:      dt,
		nodes:   m.Nodes(),
		samples: make(map[string]*buffer.Ring[float64]),
	}
	for _, p := range m.Probes() {
		sim.probes = append(sim.probes, p)
		sim.samples[p.Name] = buffer.NewRing[float64](sampleHistory)
	}
	return sim, nil
}

func (s *basicSimulator) Run(d float64) error {
	if d < 0 {
		return fmt.Errorf("cannot run backwards, got %g", d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	steps := int(d / s.dt)
	for i := 0; i < steps; i++ {
		s.t += s.dt
		outputs := make(map[string][]float64, len(s.nodes))
		for _, n := range s.nodes {
			if n.Output != nil {
				outputs[n.Name] = n.Output(s.t)
			}
		}
		for _, p := range s.probes {
			if out, ok := outputs[p.Target]; ok && len(out) > 0 {
				s.samples[p.Name].Push(out[0])
			}
		}
	}
	return nil
}

func (s *basicSimulator) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t
}

func (s *basicSimulator) Close() error {
	return nil
}

// Samples returns the recorded values for a probe, oldest first,
// limited to the retained window
func (s *basicSimulator) Samples(probe string) []float64 {
	s.mu.Lock()
	ring := s.samples[probe]
	s.mu.Unlock()

	if ring == nil {
		return nil
	}
	return ring.Snapshot()
}
