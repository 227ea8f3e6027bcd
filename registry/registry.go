// Package registry provides the one-shot id-to-component handoff table
// used to hand each pending component to exactly one connection.
//
// Ids are opaque generated tokens; internal object identity is never
// exposed. The registry has its own synchronization, independent of the
// organizer's build lock: registry operations are short and highly
// concurrent, while the build lock is held long and exclusively.
//
// There is no expiry policy. A component registered for a connection
// that never arrives stays in the table for the organizer's lifetime;
// that leak is an accepted limitation of the design.
package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cchan987/nengo-viz/component"
	"github.com/cchan987/nengo-viz/errors"
	"github.com/cchan987/nengo-viz/metric"
)

// Registry maps opaque ids to components awaiting their connection.
// A key being present means the component has not been claimed yet;
// Claim removes the key atomically, so each id is handed out at most
// once no matter how many connections race for it.
type Registry struct {
	mu      sync.Mutex
	pending map[string]component.Component
	metrics *metric.Metrics
}

// New creates an empty registry. metrics may be nil.
func New(metrics *metric.Metrics) *Registry {
	return &Registry{
		pending: make(map[string]component.Component),
		metrics: metrics,
	}
}

// Register allocates a fresh id, binds it onto the component, and
// stores the mapping. The id is unique for the process lifetime.
func (r *Registry) Register(c component.Component) (string, error) {
	if c == nil {
		return "", errors.WrapInvalid(
			fmt.Errorf("component cannot be nil"),
			"Registry", "Register", "component validation")
	}

	id := uuid.NewString()
	if err := c.Bind(id); err != nil {
		return "", errors.Wrap(err, "Registry", "Register", "id binding")
	}

	r.mu.Lock()
	r.pending[id] = c
	r.mu.Unlock()

	r.metrics.RecordRegistered()
	return id, nil
}

// Claim atomically removes and returns the component for id. It fails
// with ErrNotFound if the id is absent: never registered, already
// claimed, or belonging to a different organizer. When two claims race
// on the same id, whichever observes the mapping first wins and the
// loser gets ErrNotFound.
func (r *Registry) Claim(id string) (component.Component, error) {
	r.mu.Lock()
	c, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		r.metrics.RecordClaimMiss()
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrNotFound, id),
			"Registry", "Claim", "id lookup")
	}

	r.metrics.RecordClaimed()
	return c, nil
}

// Len returns the number of unclaimed components
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// IDs returns the ids of all unclaimed components
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	return ids
}
