package component

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchan987/nengo-viz/errors"
	"github.com/cchan987/nengo-viz/model"
)

// testHost implements the Host interface for component tests
type testHost struct {
	m  *model.Model
	dt float64
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	m := model.New("test")
	require.NoError(t, m.AddNode(&model.Node{
		Name:       "stim",
		Dimensions: 1,
		Output:     func(float64) []float64 { return []float64{0} },
	}))
	return &testHost{m: m, dt: 0.001}
}

func (h *testHost) Model() *model.Model { return h.m }
func (h *testHost) DT() float64         { return h.dt }

func TestRegisterKind_Validation(t *testing.T) {
	assert.Error(t, RegisterKind(nil))
	assert.Error(t, RegisterKind(&Registration{Kind: ""}))
	assert.Error(t, RegisterKind(&Registration{Kind: "no-factory"}))

	// Built-in kinds are already present
	err := RegisterKind(&Registration{
		Kind: KindSlider,
		New:  newSlider,
	})
	assert.Error(t, err)
}

func TestKinds_BuiltinsPresent(t *testing.T) {
	names := Kinds()
	assert.Contains(t, names, KindControl)
	assert.Contains(t, names, KindSlider)
	assert.Contains(t, names, KindValue)
}

func TestNewSpec_UnknownKind(t *testing.T) {
	_, err := NewSpec("hologram", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownKind)
}

func TestNewSpec_SchemaValidation(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		opts    map[string]any
		wantErr bool
	}{
		{"control no options", KindControl, nil, false},
		{"control rejects extras", KindControl, map[string]any{"speed": 2}, true},
		{"slider ok", KindSlider, map[string]any{"target": "stim", "min": -1.0, "max": 1.0}, false},
		{"slider missing target", KindSlider, map[string]any{"min": 0.0}, true},
		{"slider bad target type", KindSlider, map[string]any{"target": 42}, true},
		{"slider bad min type", KindSlider, map[string]any{"target": "stim", "min": "low"}, true},
		{"value ok", KindValue, map[string]any{"target": "stim"}, false},
		{"value empty target", KindValue, map[string]any{"target": ""}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewSpec(test.kind, test.opts)
			if test.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err), "expected an invalid-class error, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewSpec_CopiesOptions(t *testing.T) {
	opts := map[string]any{"target": "stim"}
	spec, err := NewSpec(KindValue, opts)
	require.NoError(t, err)

	opts["target"] = "mutated"
	assert.Equal(t, "stim", spec.Options["target"])
}

func TestBind_Once(t *testing.T) {
	h := newTestHost(t)
	spec, err := NewSpec(KindControl, nil)
	require.NoError(t, err)

	c, err := spec.Instantiate(h)
	require.NoError(t, err)

	assert.Empty(t, c.UID())
	require.NoError(t, c.Bind("abc-123"))
	assert.Equal(t, "abc-123", c.UID())

	err = c.Bind("def-456")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyBound)
	assert.Equal(t, "abc-123", c.UID())
}

func TestControl_AddsAndRemovesClock(t *testing.T) {
	h := newTestHost(t)
	before := h.Model().Len()

	spec, err := NewSpec(KindControl, nil)
	require.NoError(t, err)
	c, err := spec.Instantiate(h)
	require.NoError(t, err)

	assert.Equal(t, before+1, h.Model().Len())

	require.NoError(t, c.RemoveModelObjects(h.Model()))
	assert.Equal(t, before, h.Model().Len())
}

func TestSlider_Behavior(t *testing.T) {
	h := newTestHost(t)

	spec, err := NewSpec(KindSlider, map[string]any{"target": "stim", "min": -2.0, "max": 2.0})
	require.NoError(t, err)
	c, err := spec.Instantiate(h)
	require.NoError(t, err)

	slider := c.(*Slider)
	node, ok := h.Model().Node(slider.nodeName)
	require.True(t, ok, "slider should add an override node")

	slider.SetValue(1.5)
	assert.Equal(t, []float64{1.5}, node.Output(0))

	// Values clamp to the configured range
	slider.SetValue(10)
	assert.Equal(t, 2.0, slider.Value())
	slider.SetValue(-10)
	assert.Equal(t, -2.0, slider.Value())

	require.NoError(t, c.RemoveModelObjects(h.Model()))
	_, ok = h.Model().Node(slider.nodeName)
	assert.False(t, ok)
}

func TestSlider_RejectsMissingTarget(t *testing.T) {
	h := newTestHost(t)

	spec, err := NewSpec(KindSlider, map[string]any{"target": "ghost"})
	require.NoError(t, err, "schema cannot know the model, so NewSpec passes")

	_, err = spec.Instantiate(h)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestSlider_RejectsEmptyRange(t *testing.T) {
	h := newTestHost(t)

	spec, err := NewSpec(KindSlider, map[string]any{"target": "stim", "min": 1.0, "max": 1.0})
	require.NoError(t, err)

	_, err = spec.Instantiate(h)
	assert.Error(t, err)
}

func TestValue_AddsAndRemovesProbe(t *testing.T) {
	h := newTestHost(t)

	spec, err := NewSpec(KindValue, map[string]any{"target": "stim"})
	require.NoError(t, err)
	c, err := spec.Instantiate(h)
	require.NoError(t, err)

	v := c.(*Value)
	_, ok := h.Model().Probe(v.probeName)
	require.True(t, ok, "value graph should attach a probe")

	require.NoError(t, c.RemoveModelObjects(h.Model()))
	_, ok = h.Model().Probe(v.probeName)
	assert.False(t, ok)
}

func TestValue_RejectsMissingTarget(t *testing.T) {
	h := newTestHost(t)

	spec, err := NewSpec(KindValue, map[string]any{"target": "ghost"})
	require.NoError(t, err)

	_, err = spec.Instantiate(h)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestPayload_BeforeStrip(t *testing.T) {
	h := newTestHost(t)

	for _, kind := range []string{KindControl, KindSlider, KindValue} {
		opts := map[string]any{}
		if kind != KindControl {
			opts["target"] = "stim"
		}
		spec, err := NewSpec(kind, opts)
		require.NoError(t, err)
		c, err := spec.Instantiate(h)
		require.NoError(t, err)

		// Payload must work before Bind and before RemoveModelObjects
		raw, err := c.Payload()
		require.NoError(t, err, kind)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded), kind)
		assert.NotEmpty(t, decoded["type"], kind)
	}
}

func TestConcurrentInstantiation_NoNameCollision(t *testing.T) {
	// Two sessions on one model instantiate the same template; the
	// temporary node names must not collide.
	h := newTestHost(t)

	spec, err := NewSpec(KindSlider, map[string]any{"target": "stim"})
	require.NoError(t, err)

	a, err := spec.Instantiate(h)
	require.NoError(t, err)
	b, err := spec.Instantiate(h)
	require.NoError(t, err)

	assert.NotEqual(t, a.(*Slider).nodeName, b.(*Slider).nodeName)
}
