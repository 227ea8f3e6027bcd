package component

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cchan987/nengo-viz/errors"
	"github.com/cchan987/nengo-viz/model"
)

// Metadata describes what a component is
type Metadata struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Host is the view of the owning session a component is allowed to
// see. The session implements it; components never reach back into
// session internals.
type Host interface {
	// Model returns the shared model definition
	Model() *model.Model

	// DT returns the simulation time step
	DT() float64
}

// Component is the capability contract every visualization component
// must satisfy.
type Component interface {
	// Meta returns basic component information
	Meta() Metadata

	// UID returns the registry id, or "" before Bind
	UID() string

	// Bind attaches the registry id. Called exactly once at
	// registration; a second call returns ErrAlreadyBound.
	Bind(uid string) error

	// RemoveModelObjects reverts any temporary model mutation made at
	// construction. Called exactly once, while the owning session
	// holds the build lock.
	RemoveModelObjects(m *model.Model) error

	// Payload produces the serialized self-description sent to the
	// far end of a connection. Callable any number of times and must
	// not assume the build has completed.
	Payload() ([]byte, error)
}

// Factory creates a component instance from validated options
type Factory func(h Host, opts map[string]any) (Component, error)

// Registration holds the factory and metadata for a component kind
type Registration struct {
	Kind        string // Kind name (e.g. "slider")
	Description string // Human-readable description
	Schema      string // JSON Schema for the kind's options
	New         Factory
}

var (
	kindsMu sync.RWMutex
	kinds   = make(map[string]*Registration)
)

// RegisterKind registers a component kind by name. Returns an error
// if the kind is already registered or the registration is incomplete.
func RegisterKind(reg *Registration) error {
	if reg == nil || reg.Kind == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"component", "RegisterKind", "kind name validation")
	}
	if reg.New == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"component", "RegisterKind", "factory validation")
	}

	kindsMu.Lock()
	defer kindsMu.Unlock()

	if _, exists := kinds[reg.Kind]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("kind %q is already registered", reg.Kind),
			"component", "RegisterKind", "duplicate kind check")
	}
	kinds[reg.Kind] = reg
	return nil
}

// mustRegisterKind is used by the built-in kinds' init functions
func mustRegisterKind(reg *Registration) {
	if err := RegisterKind(reg); err != nil {
		panic(err)
	}
}

// Kind returns the registration for a kind name
func Kind(name string) (*Registration, bool) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	reg, ok := kinds[name]
	return reg, ok
}

// Kinds returns the names of all registered kinds
func Kinds() []string {
	kindsMu.RLock()
	defer kindsMu.RUnlock()

	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	return names
}

// Spec is one template entry: a component kind plus its validated
// options. Immutable once created.
type Spec struct {
	Kind    string
	Options map[string]any

	build Factory
}

// NewSpec validates opts against the kind's JSON Schema and returns a
// Spec ready for appending to a template. Malformed options fail here,
// synchronously, before any session exists.
func NewSpec(kind string, opts map[string]any) (Spec, error) {
	reg, ok := Kind(kind)
	if !ok {
		return Spec{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownKind, kind),
			"component", "NewSpec", "kind lookup")
	}

	if opts == nil {
		opts = map[string]any{}
	}

	if reg.Schema != "" {
		result, err := gojsonschema.Validate(
			gojsonschema.NewStringLoader(reg.Schema),
			gojsonschema.NewGoLoader(opts),
		)
		if err != nil {
			return Spec{}, errors.WrapInvalid(err,
				"component", "NewSpec", "schema validation")
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, desc := range result.Errors() {
				msgs = append(msgs, desc.String())
			}
			return Spec{}, errors.WrapInvalid(
				fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(msgs, "; ")),
				"component", "NewSpec", fmt.Sprintf("%s options validation", kind))
		}
	}

	// Copy so later caller mutation cannot reach into the template
	copied := make(map[string]any, len(opts))
	for k, v := range opts {
		copied[k] = v
	}

	return Spec{Kind: kind, Options: copied, build: reg.New}, nil
}

// Instantiate creates a component from the spec against a host.
// Construction may mutate the model.
func (s Spec) Instantiate(h Host) (Component, error) {
	if s.build == nil {
		return nil, errors.WrapInvalid(errors.ErrUnknownKind,
			"component", "Instantiate", "unresolved spec")
	}
	c, err := s.build(h, s.Options)
	if err != nil {
		return nil, errors.Wrap(err, "component", "Instantiate",
			fmt.Sprintf("%s construction", s.Kind))
	}
	return c, nil
}

// base carries the registration id shared by all built-in kinds
type base struct {
	mu  sync.Mutex
	uid string
}

// UID returns the registry id, or "" before Bind
func (b *base) UID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uid
}

// Bind attaches the registry id exactly once
func (b *base) Bind(uid string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.uid != "" {
		return errors.WrapInvalid(errors.ErrAlreadyBound, "component", "Bind", "uid assignment")
	}
	b.uid = uid
	return nil
}

// optString extracts a string option
func optString(opts map[string]any, key string) (string, bool) {
	v, ok := opts[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// optFloat extracts a numeric option, tolerating int and float forms
func optFloat(opts map[string]any, key string, def float64) float64 {
	v, ok := opts[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}
