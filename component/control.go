package component

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cchan987/nengo-viz/model"
)

// KindControl is the simulation control panel. It is always the first
// template entry, inserted at organizer construction.
const KindControl = "control"

func init() {
	mustRegisterKind(&Registration{
		Kind:        KindControl,
		Description: "Simulation control panel (pause, time display)",
		Schema:      `{"type":"object","properties":{},"additionalProperties":false}`,
		New:         newControl,
	})
}

// nameToken returns a short unique suffix for temporary model object
// names, so concurrent sessions on one model never collide.
func nameToken() string {
	return uuid.NewString()[:8]
}

// Control is the simulation control component. It adds a temporary
// clock node so the control panel can display simulated time while
// the model is being instrumented.
type Control struct {
	base
	dt       float64
	nodeName string
}

func newControl(h Host, _ map[string]any) (Component, error) {
	c := &Control{
		dt:       h.DT(),
		nodeName: fmt.Sprintf("viz.control.clock.%s", nameToken()),
	}

	var t float64
	err := h.Model().AddNode(&model.Node{
		Name:       c.nodeName,
		Dimensions: 1,
		Output: func(now float64) []float64 {
			t = now
			return []float64{t}
		},
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Meta returns basic component information
func (c *Control) Meta() Metadata {
	return Metadata{
		Name:        c.nodeName,
		Kind:        KindControl,
		Description: "Simulation control panel",
		Version:     "1.0.0",
	}
}

// RemoveModelObjects removes the temporary clock node
func (c *Control) RemoveModelObjects(m *model.Model) error {
	m.RemoveNode(c.nodeName)
	return nil
}

// Payload returns the serialized control panel description
func (c *Control) Payload() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": "simcontrol",
		"uid":  c.UID(),
		"dt":   c.dt,
	})
}
