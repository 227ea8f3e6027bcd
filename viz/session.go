package viz

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cchan987/nengo-viz/component"
	"github.com/cchan987/nengo-viz/errors"
	"github.com/cchan987/nengo-viz/metric"
	"github.com/cchan987/nengo-viz/model"
)

// State represents the lifecycle state of a session
type State int

const (
	// StateBuilding indicates the session is instantiating components
	// or building its simulator
	StateBuilding State = iota
	// StateRunning indicates the simulator exists, instrumentation has
	// been stripped, and the run loop is stepping
	StateRunning
	// StateFinished indicates a stop was requested; terminal
	StateFinished
	// StateFailed indicates the simulator build failed; terminal, the
	// session never entered StateRunning
	StateFailed
)

// String returns a string representation of the session state
func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is one simulation attachment: a set of instantiated
// components plus the simulator built from the model they instrumented.
// Create with Organizer.CreateSession, then launch the background
// build-and-run path with Start.
type Session struct {
	org     *Organizer
	logger  *slog.Logger
	metrics *metric.Metrics
	limiter *rate.Limiter
	quantum float64

	mu         sync.Mutex
	state      State
	started    bool
	stopReq    bool
	err        error
	sim        model.Simulator
	cancel     context.CancelFunc
	components []component.Component
	uids       []string

	ready chan struct{}
	done  chan struct{}
}

// CreateSession instantiates one component per template entry, in
// template order, and registers each in the handoff registry before
// returning. The component list is fixed from here on. The background
// build-and-run path is not started; call Start on the returned
// session.
func (o *Organizer) CreateSession() (*Session, error) {
	s := &Session{
		org:     o,
		logger:  o.logger.With("component", "session"),
		metrics: o.metrics,
		limiter: rate.NewLimiter(o.pace, 1),
		quantum: o.quantum,
		state:   StateBuilding,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}

	for _, spec := range o.Template() {
		c, err := spec.Instantiate(s)
		if err != nil {
			s.teardownComponents()
			return nil, errors.Wrap(err, "Organizer", "CreateSession",
				fmt.Sprintf("%s instantiation", spec.Kind))
		}
		uid, err := o.registry.Register(c)
		if err != nil {
			s.teardownComponents()
			return nil, errors.Wrap(err, "Organizer", "CreateSession",
				fmt.Sprintf("%s registration", spec.Kind))
		}
		s.components = append(s.components, c)
		s.uids = append(s.uids, uid)
	}

	o.metrics.RecordSessionCreated()
	o.metrics.RecordStateChange("", StateBuilding.String())
	s.logger.Debug("session created",
		"model", o.model.Name(), "components", len(s.components))
	return s, nil
}

// StartSession creates a session and starts its background path. This
// is what the listener calls once per accepted top-level connection.
func (o *Organizer) StartSession(ctx context.Context) (*Session, error) {
	s, err := o.CreateSession()
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// teardownComponents undoes the model mutation of components created
// so far when CreateSession fails partway through the template
func (s *Session) teardownComponents() {
	for _, c := range s.components {
		if err := c.RemoveModelObjects(s.org.model); err != nil {
			s.logger.Warn("failed to remove model objects during teardown",
				"kind", c.Meta().Kind, "error", err)
		}
	}
}

// Start launches the background build-and-run path. It returns
// immediately; a second call fails with ErrAlreadyStarted.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Session", "Start", "start check")
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// run executes the session procedure: build under the organizer's
// build lock, strip instrumentation, then loop stepping the simulator.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.exit()

	err := s.build()
	close(s.ready)

	if err != nil {
		s.fail(err)
		return
	}

	// A stop requested during building takes effect here: the state is
	// already Finished, so the transition fails and no step runs.
	if !s.transition(StateBuilding, StateRunning) {
		return
	}

	s.logger.Debug("session running", "quantum", s.quantum)
	s.loop(ctx)
}

// build acquires the build lock, builds the simulator, and removes
// every component's temporary model objects in template order. The
// strip happens on all exit paths, including build failure, so
// instrumentation never outlives the building phase; the lock is
// released on all exit paths so a failed build cannot deadlock
// subsequent sessions.
func (s *Session) build() error {
	s.org.buildMu.Lock()
	defer s.org.buildMu.Unlock()

	start := time.Now()
	sim, err := s.org.factory(s.org.model, s.org.dt)

	for _, c := range s.components {
		if rerr := c.RemoveModelObjects(s.org.model); rerr != nil {
			s.logger.Warn("failed to remove model objects",
				"kind", c.Meta().Kind, "error", rerr)
		}
	}

	s.metrics.RecordBuild(time.Since(start).Seconds(), err)

	if err != nil {
		return errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrBuildFailed, err),
			"Session", "build", "simulator build")
	}

	s.mu.Lock()
	s.sim = sim
	s.mu.Unlock()
	return nil
}

// loop advances the simulation one quantum per iteration. The stop
// flag and context are checked before every step, never only between
// state transitions, so a stop requested at any point is observed
// within one quantum.
func (s *Session) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil || s.stopRequested() {
			return
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		if s.stopRequested() {
			return
		}

		if err := s.sim.Run(s.quantum); err != nil {
			s.logger.Error("simulation step failed", "error", err)
			s.fail(errors.WrapFatal(err, "Session", "loop", "simulation step"))
			return
		}
		s.metrics.RecordStep()
	}
}

// exit settles terminal state and releases the simulator
func (s *Session) exit() {
	s.transition(StateRunning, StateFinished)

	s.mu.Lock()
	sim := s.sim
	s.mu.Unlock()

	if sim != nil {
		if err := sim.Close(); err != nil {
			s.logger.Warn("failed to close simulator", "error", err)
		}
	}
	s.logger.Debug("session exited", "state", s.State().String())
}

// Finish requests a cooperative stop. Idempotent, non-blocking, and
// effective from any state: issued during building it is observed once
// the build settles, before the first step. The run loop notices it at
// quantum boundaries only.
func (s *Session) Finish() {
	s.mu.Lock()
	s.stopReq = true
	cancel := s.cancel
	if s.state == StateBuilding || s.state == StateRunning {
		s.setStateLocked(StateFinished)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// fail records a terminal failure. Only a building session moves to
// StateFailed; a session already finished keeps its state but still
// records the error.
func (s *Session) fail(err error) {
	s.mu.Lock()
	s.err = err
	if s.state == StateBuilding || s.state == StateRunning {
		s.setStateLocked(StateFailed)
	}
	s.mu.Unlock()

	s.logger.Error("session failed", "error", err)
}

// transition moves from one state to another if the session is
// currently in from. Returns false otherwise.
func (s *Session) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		return false
	}
	s.setStateLocked(to)
	return true
}

// setStateLocked updates state and the state gauges. Caller holds mu.
func (s *Session) setStateLocked(to State) {
	if s.state == to {
		return
	}
	s.metrics.RecordStateChange(s.state.String(), to.String())
	s.state = to
}

// stopRequested reports whether Finish has been called
func (s *Session) stopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopReq
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the terminal error, or nil
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Sim returns the built simulator, or nil while the session is still
// building
func (s *Session) Sim() model.Simulator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim
}

// Components returns the session's components in template order
func (s *Session) Components() []component.Component {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]component.Component, len(s.components))
	copy(out, s.components)
	return out
}

// UIDs returns the registry ids of the session's components in
// template order
func (s *Session) UIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.uids))
	copy(out, s.uids)
	return out
}

// Ready is closed once the build settles, either into Running or into
// a terminal failure
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed when the background path exits
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Payload concatenates every component's serialized description in
// template order, newline-separated. Callable at any time; during
// building, components may still be in their pre-strip state.
func (s *Session) Payload() ([]byte, error) {
	var buf bytes.Buffer
	for i, c := range s.Components() {
		raw, err := c.Payload()
		if err != nil {
			return nil, errors.Wrap(err, "Session", "Payload",
				fmt.Sprintf("%s serialization", c.Meta().Kind))
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// Model returns the shared model definition. Part of component.Host.
func (s *Session) Model() *model.Model {
	return s.org.model
}

// DT returns the simulation time step. Part of component.Host.
func (s *Session) DT() float64 {
	return s.org.dt
}
