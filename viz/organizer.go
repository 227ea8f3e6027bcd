package viz

import (
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/cchan987/nengo-viz/component"
	"github.com/cchan987/nengo-viz/errors"
	"github.com/cchan987/nengo-viz/metric"
	"github.com/cchan987/nengo-viz/model"
	"github.com/cchan987/nengo-viz/registry"
)

// Organizer is the per-model coordinator. It owns the component
// template, the build lock, and the handoff registry. Multiple
// organizers (multiple models) coexist without interference; nothing
// here is process-global.
type Organizer struct {
	model   *model.Model
	dt      float64
	quantum float64
	pace    rate.Limit
	factory model.Factory
	logger  *slog.Logger
	metrics *metric.Metrics

	// buildMu is the build lock: mutual exclusion over the
	// model-mutation phase (build plus instrumentation strip) across
	// all sessions of this organizer.
	buildMu sync.Mutex

	templateMu sync.Mutex
	template   []component.Spec

	registry *registry.Registry
}

// Option configures an Organizer
type Option func(*Organizer)

// WithDT sets the simulation time step (default 0.001)
func WithDT(dt float64) Option {
	return func(o *Organizer) { o.dt = dt }
}

// WithQuantum sets the simulated time advanced per run-loop iteration
// (default 0.1)
func WithQuantum(q float64) Option {
	return func(o *Organizer) { o.quantum = q }
}

// WithFactory sets the simulator factory (default model.DefaultFactory)
func WithFactory(f model.Factory) Option {
	return func(o *Organizer) { o.factory = f }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *Organizer) { o.logger = l }
}

// WithMetrics attaches a metrics registry
func WithMetrics(r *metric.Registry) Option {
	return func(o *Organizer) { o.metrics = r.Core() }
}

// WithPace limits how many run-loop iterations execute per wall-clock
// second. The default is rate.Inf: run as fast as the engine allows.
func WithPace(p rate.Limit) Option {
	return func(o *Organizer) { o.pace = p }
}

// New creates an organizer for a model. The template starts with the
// implicit control component; every session gets one.
func New(m *model.Model, opts ...Option) (*Organizer, error) {
	if m == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"Organizer", "New", "model validation")
	}

	o := &Organizer{
		model:   m,
		dt:      0.001,
		quantum: 0.1,
		pace:    rate.Inf,
		factory: model.DefaultFactory,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.dt <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"Organizer", "New", "dt validation")
	}
	if o.quantum <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"Organizer", "New", "quantum validation")
	}

	o.registry = registry.New(o.metrics)

	controlSpec, err := component.NewSpec(component.KindControl, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Organizer", "New", "control spec")
	}
	o.template = []component.Spec{controlSpec}

	return o, nil
}

// Configure validates options for the given component kind and appends
// a spec to the template. Malformed options fail here, synchronously;
// sessions already created are unaffected by the append.
func (o *Organizer) Configure(kind string, opts map[string]any) error {
	spec, err := component.NewSpec(kind, opts)
	if err != nil {
		return errors.Wrap(err, "Organizer", "Configure", kind+" spec")
	}

	o.templateMu.Lock()
	o.template = append(o.template, spec)
	o.templateMu.Unlock()

	o.logger.Debug("template configured", "kind", kind, "entries", o.TemplateLen())
	return nil
}

// AddSlider appends a slider controlling the target node's value
func (o *Organizer) AddSlider(target string, min, max float64) error {
	return o.Configure(component.KindSlider, map[string]any{
		"target": target,
		"min":    min,
		"max":    max,
	})
}

// AddValue appends a value graph showing the target node's output
func (o *Organizer) AddValue(target string) error {
	return o.Configure(component.KindValue, map[string]any{
		"target": target,
	})
}

// Template returns a copy of the current template
func (o *Organizer) Template() []component.Spec {
	o.templateMu.Lock()
	defer o.templateMu.Unlock()

	specs := make([]component.Spec, len(o.template))
	copy(specs, o.template)
	return specs
}

// TemplateLen returns the number of template entries
func (o *Organizer) TemplateLen() int {
	o.templateMu.Lock()
	defer o.templateMu.Unlock()
	return len(o.template)
}

// Register stores a component in the handoff registry and returns its
// id. Exposed for the listener; sessions register their components
// through it as well.
func (o *Organizer) Register(c component.Component) (string, error) {
	return o.registry.Register(c)
}

// Claim atomically removes and returns the component registered under
// id. Fails with an ErrNotFound-classed error if the id is absent or
// already claimed.
func (o *Organizer) Claim(id string) (component.Component, error) {
	return o.registry.Claim(id)
}

// Registry returns the handoff registry
func (o *Organizer) Registry() *registry.Registry {
	return o.registry
}

// Model returns the model definition
func (o *Organizer) Model() *model.Model {
	return o.model
}

// DT returns the simulation time step
func (o *Organizer) DT() float64 {
	return o.dt
}
