package model

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_AddRemoveNode(t *testing.T) {
	m := New("test")

	err := m.AddNode(&Node{Name: "stim", Dimensions: 1})
	require.NoError(t, err)

	_, ok := m.Node("stim")
	assert.True(t, ok)
	assert.Equal(t, 1, m.Len())

	// Duplicate names are rejected
	err = m.AddNode(&Node{Name: "stim", Dimensions: 1})
	assert.Error(t, err)

	m.RemoveNode("stim")
	_, ok = m.Node("stim")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())

	// Removal is idempotent
	m.RemoveNode("stim")
}

func TestModel_AddNode_Validation(t *testing.T) {
	m := New("test")
	assert.Error(t, m.AddNode(nil))
	assert.Error(t, m.AddNode(&Node{}))
}

func TestModel_NodesPreserveOrder(t *testing.T) {
	m := New("test")
	names := []string{"a", "b", "c", "d"}
	for _, name := range names {
		require.NoError(t, m.AddNode(&Node{Name: name}))
	}

	m.RemoveNode("b")

	var got []string
	for _, n := range m.Nodes() {
		got = append(got, n.Name)
	}
	assert.Equal(t, []string{"a", "c", "d"}, got)
}

func TestModel_Probes(t *testing.T) {
	m := New("test")
	require.NoError(t, m.AddNode(&Node{Name: "stim"}))

	err := m.AddProbe(&Probe{Name: "p1", Target: "stim", Attr: "output"})
	require.NoError(t, err)

	// Probe targets must exist
	err = m.AddProbe(&Probe{Name: "p2", Target: "ghost"})
	assert.Error(t, err)

	// Duplicate probe names are rejected
	err = m.AddProbe(&Probe{Name: "p1", Target: "stim"})
	assert.Error(t, err)

	m.RemoveProbe("p1")
	_, ok := m.Probe("p1")
	assert.False(t, ok)
}

func TestModel_ConcurrentAccess(t *testing.T) {
	m := New("test")
	require.NoError(t, m.AddNode(&Node{Name: "base"}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Nodes()
				m.Node("base")
				m.Probes()
			}
		}()
	}
	wg.Wait()
}

func TestDefaultFactory_RejectsBadDT(t *testing.T) {
	m := New("test")
	_, err := DefaultFactory(m, 0)
	assert.Error(t, err)
	_, err = DefaultFactory(m, -0.001)
	assert.Error(t, err)
}

func TestBasicSimulator_RunAndProbe(t *testing.T) {
	m := New("test")
	require.NoError(t, m.AddNode(&Node{
		Name:       "sine",
		Dimensions: 1,
		Output: func(t float64) []float64 {
			return []float64{math.Sin(t)}
		},
	}))
	require.NoError(t, m.AddProbe(&Probe{Name: "p", Target: "sine", Attr: "output"}))

	sim, err := DefaultFactory(m, 0.001)
	require.NoError(t, err)
	defer sim.Close()

	require.NoError(t, sim.Run(0.1))
	assert.InDelta(t, 0.1, sim.Time(), 1e-9)

	samples := sim.(*basicSimulator).Samples("p")
	require.Len(t, samples, 100)
	assert.InDelta(t, math.Sin(0.001), samples[0], 1e-9)
}

func TestBasicSimulator_SampleHistoryIsBounded(t *testing.T) {
	m := New("test")
	require.NoError(t, m.AddNode(&Node{
		Name:   "stim",
		Output: func(t float64) []float64 { return []float64{t} },
	}))
	require.NoError(t, m.AddProbe(&Probe{Name: "p", Target: "stim"}))

	sim, err := DefaultFactory(m, 0.001)
	require.NoError(t, err)
	defer sim.Close()

	// Run long enough to overflow the retention window; only the most
	// recent samples survive.
	require.NoError(t, sim.Run(float64(sampleHistory+1000) * 0.001))

	samples := sim.(*basicSimulator).Samples("p")
	require.Len(t, samples, sampleHistory)
	assert.Greater(t, samples[0], 1.0*0.001)
	assert.Less(t, samples[0], samples[len(samples)-1])
}

func TestBasicSimulator_SnapshotIsolation(t *testing.T) {
	m := New("test")
	require.NoError(t, m.AddNode(&Node{
		Name:   "stim",
		Output: func(float64) []float64 { return []float64{1} },
	}))
	require.NoError(t, m.AddProbe(&Probe{Name: "p", Target: "stim"}))

	sim, err := DefaultFactory(m, 0.01)
	require.NoError(t, err)

	// Stripping the model after build must not affect the simulation
	m.RemoveProbe("p")
	m.RemoveNode("stim")

	require.NoError(t, sim.Run(0.1))
	assert.NotEmpty(t, sim.(*basicSimulator).Samples("p"))
}
