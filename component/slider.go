package component

import (
	"encoding/json"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cchan987/nengo-viz/errors"
	"github.com/cchan987/nengo-viz/model"
)

// KindSlider controls a target node's value from the browser
const KindSlider = "slider"

const sliderSchema = `{
	"type": "object",
	"required": ["target"],
	"properties": {
		"target": {"type": "string", "minLength": 1},
		"min":    {"type": "number"},
		"max":    {"type": "number"}
	},
	"additionalProperties": false
}`

func init() {
	mustRegisterKind(&Registration{
		Kind:        KindSlider,
		Description: "Slider controlling a node's value",
		Schema:      sliderSchema,
		New:         newSlider,
	})
}

// Slider overrides a target node's value with one set from the
// browser. It adds a temporary override node at construction and
// removes it once the simulator has been built.
type Slider struct {
	base
	target   string
	min, max float64
	nodeName string

	// current value, stored as float64 bits
	value atomic.Uint64
}

func newSlider(h Host, opts map[string]any) (Component, error) {
	target, ok := optString(opts, "target")
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"Slider", "newSlider", "target option")
	}
	if _, ok := h.Model().Node(target); !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("slider target %q does not exist", target),
			"Slider", "newSlider", "target lookup")
	}

	s := &Slider{
		target:   target,
		min:      optFloat(opts, "min", -1),
		max:      optFloat(opts, "max", 1),
		nodeName: fmt.Sprintf("viz.slider.%s.%s", target, nameToken()),
	}
	if s.min >= s.max {
		return nil, errors.WrapInvalid(
			fmt.Errorf("slider range [%g, %g] is empty", s.min, s.max),
			"Slider", "newSlider", "range validation")
	}

	err := h.Model().AddNode(&model.Node{
		Name:       s.nodeName,
		Dimensions: 1,
		Output: func(float64) []float64 {
			return []float64{s.Value()}
		},
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Meta returns basic component information
func (s *Slider) Meta() Metadata {
	return Metadata{
		Name:        s.nodeName,
		Kind:        KindSlider,
		Description: fmt.Sprintf("Slider for %s", s.target),
		Version:     "1.0.0",
	}
}

// Value returns the current slider value
func (s *Slider) Value() float64 {
	return math.Float64frombits(s.value.Load())
}

// SetValue clamps v to the slider range and stores it
func (s *Slider) SetValue(v float64) {
	if v < s.min {
		v = s.min
	}
	if v > s.max {
		v = s.max
	}
	s.value.Store(math.Float64bits(v))
}

// RemoveModelObjects removes the temporary override node
func (s *Slider) RemoveModelObjects(m *model.Model) error {
	m.RemoveNode(s.nodeName)
	return nil
}

// Payload returns the serialized slider description
func (s *Slider) Payload() ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":   "slider",
		"uid":    s.UID(),
		"target": s.target,
		"min":    s.min,
		"max":    s.max,
		"value":  s.Value(),
	})
}
