package component

import (
	"encoding/json"
	"fmt"

	"github.com/cchan987/nengo-viz/errors"
	"github.com/cchan987/nengo-viz/model"
)

// KindValue is a graph of a target node's decoded value over time
const KindValue = "value"

const valueSchema = `{
	"type": "object",
	"required": ["target"],
	"properties": {
		"target": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`

func init() {
	mustRegisterKind(&Registration{
		Kind:        KindValue,
		Description: "Value graph showing a node's output over time",
		Schema:      valueSchema,
		New:         newValue,
	})
}

// Value is a value-graph component. It attaches a temporary probe to
// the target node at construction and removes it once the simulator
// has been built.
type Value struct {
	base
	target    string
	probeName string
}

func newValue(h Host, opts map[string]any) (Component, error) {
	target, ok := optString(opts, "target")
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"Value", "newValue", "target option")
	}

	v := &Value{
		target:    target,
		probeName: fmt.Sprintf("viz.value.%s.%s", target, nameToken()),
	}

	err := h.Model().AddProbe(&model.Probe{
		Name:   v.probeName,
		Target: target,
		Attr:   "output",
	})
	if err != nil {
		return nil, errors.WrapInvalid(err, "Value", "newValue", "probe attachment")
	}
	return v, nil
}

// Meta returns basic component information
func (v *Value) Meta() Metadata {
	return Metadata{
		Name:        v.probeName,
		Kind:        KindValue,
		Description: fmt.Sprintf("Value graph for %s", v.target),
		Version:     "1.0.0",
	}
}

// RemoveModelObjects removes the temporary probe
func (v *Value) RemoveModelObjects(m *model.Model) error {
	m.RemoveProbe(v.probeName)
	return nil
}

// Payload returns the serialized value-graph description
func (v *Value) Payload() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":   "value",
		"uid":    v.UID(),
		"target": v.target,
		"probe":  v.probeName,
	})
}
