package health

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusPredicates(t *testing.T) {
	assert.True(t, NewHealthy("server", "listening").IsHealthy())
	assert.True(t, NewDegraded("session", "building").IsDegraded())
	assert.True(t, NewUnhealthy("session", "build failed").IsUnhealthy())

	assert.False(t, NewDegraded("session", "building").Healthy)
	assert.True(t, NewHealthy("server", "listening").Healthy)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{
			name: "empty is healthy",
			subs: nil,
			want: "healthy",
		},
		{
			name: "all healthy",
			subs: []Status{NewHealthy("a", ""), NewHealthy("b", "")},
			want: "healthy",
		},
		{
			name: "degraded wins over healthy",
			subs: []Status{NewHealthy("a", ""), NewDegraded("b", "building")},
			want: "degraded",
		},
		{
			name: "unhealthy wins over degraded",
			subs: []Status{NewDegraded("a", ""), NewUnhealthy("b", "build failed")},
			want: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("system", tt.subs)
			assert.Equal(t, tt.want, got.Status)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}
}

func TestMonitorUpdateAndGet(t *testing.T) {
	m := NewMonitor()

	m.UpdateHealthy("server", "listening")
	m.UpdateDegraded("session-1", "building")

	status, ok := m.Get("server")
	require.True(t, ok)
	assert.Equal(t, "server", status.Component)
	assert.True(t, status.IsHealthy())
	assert.False(t, status.Timestamp.IsZero())

	_, ok = m.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, 2, m.Count())
}

func TestMonitorRemove(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("session-1", "running")
	m.Remove("session-1")

	_, ok := m.Get("session-1")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Count())
}

func TestMonitorAggregateStableOrder(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("server", "listening")
	m.UpdateUnhealthy("session-2", "build failed")
	m.UpdateDegraded("session-1", "building")

	got := m.Aggregate("nengoviz")
	assert.True(t, got.IsUnhealthy())
	require.Len(t, got.SubStatuses, 3)
	assert.Equal(t, "server", got.SubStatuses[0].Component)
	assert.Equal(t, "session-1", got.SubStatuses[1].Component)
	assert.Equal(t, "session-2", got.SubStatuses[2].Component)
}

func TestMonitorConcurrentUpdates(t *testing.T) {
	m := NewMonitor()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.UpdateHealthy("server", "listening")
			m.Aggregate("nengoviz")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, m.Count())
}
