package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all platform-level metrics
type Metrics struct {
	// Session metrics
	SessionsCreated prometheus.Counter
	SessionState    *prometheus.GaugeVec
	BuildDuration   prometheus.Histogram
	BuildFailures   prometheus.Counter
	StepsTotal      prometheus.Counter

	// Component registry metrics
	ComponentsRegistered prometheus.Counter
	ComponentsClaimed    prometheus.Counter
	ClaimMisses          prometheus.Counter
	PendingComponents    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nengoviz",
			Subsystem: "session",
			Name:      "created_total",
			Help:      "Total number of visualization sessions created",
		}),
		SessionState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "nengoviz",
				Subsystem: "session",
				Name:      "state",
				Help:      "Number of sessions currently in each lifecycle state",
			},
			[]string{"state"},
		),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nengoviz",
			Subsystem: "session",
			Name:      "build_duration_seconds",
			Help:      "Time spent building a simulator while holding the build lock",
			Buckets:   prometheus.DefBuckets,
		}),
		BuildFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nengoviz",
			Subsystem: "session",
			Name:      "build_failures_total",
			Help:      "Total number of simulator builds that failed",
		}),
		StepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nengoviz",
			Subsystem: "session",
			Name:      "steps_total",
			Help:      "Total number of simulation quanta advanced across all sessions",
		}),
		ComponentsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nengoviz",
			Subsystem: "registry",
			Name:      "registered_total",
			Help:      "Total number of components registered for handoff",
		}),
		ComponentsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nengoviz",
			Subsystem: "registry",
			Name:      "claimed_total",
			Help:      "Total number of components claimed by connections",
		}),
		ClaimMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nengoviz",
			Subsystem: "registry",
			Name:      "claim_misses_total",
			Help:      "Total number of claims on absent or already-claimed ids",
		}),
		PendingComponents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nengoviz",
			Subsystem: "registry",
			Name:      "pending_components",
			Help:      "Components registered but not yet claimed",
		}),
	}
}

// Registry manages the registration and lifecycle of metrics
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
}

// NewRegistry creates a new metrics registry with core platform metrics
func NewRegistry() *Registry {
	prometheusRegistry := prometheus.NewRegistry()

	r := &Registry{
		prometheusRegistry: prometheusRegistry,
		Metrics:            NewMetrics(),
	}

	prometheusRegistry.MustRegister(
		r.Metrics.SessionsCreated,
		r.Metrics.SessionState,
		r.Metrics.BuildDuration,
		r.Metrics.BuildFailures,
		r.Metrics.StepsTotal,
		r.Metrics.ComponentsRegistered,
		r.Metrics.ComponentsClaimed,
		r.Metrics.ClaimMisses,
		r.Metrics.PendingComponents,
	)

	// Go runtime metrics
	prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Handler returns an HTTP handler serving the registry's metrics
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})
}

// Core returns the platform metrics, or nil for a nil registry. All
// recording sites go through this so a nil *Registry disables metrics.
func (r *Registry) Core() *Metrics {
	if r == nil {
		return nil
	}
	return r.Metrics
}

// RecordSessionCreated bumps the session creation counter
func (m *Metrics) RecordSessionCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

// RecordStateChange moves a session between lifecycle state gauges
func (m *Metrics) RecordStateChange(from, to string) {
	if m == nil {
		return
	}
	if from != "" {
		m.SessionState.WithLabelValues(from).Dec()
	}
	if to != "" {
		m.SessionState.WithLabelValues(to).Inc()
	}
}

// RecordBuild records a build duration and outcome
func (m *Metrics) RecordBuild(seconds float64, err error) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(seconds)
	if err != nil {
		m.BuildFailures.Inc()
	}
}

// RecordStep bumps the step counter
func (m *Metrics) RecordStep() {
	if m == nil {
		return
	}
	m.StepsTotal.Inc()
}

// RecordRegistered bumps registration counters
func (m *Metrics) RecordRegistered() {
	if m == nil {
		return
	}
	m.ComponentsRegistered.Inc()
	m.PendingComponents.Inc()
}

// RecordClaimed bumps claim counters
func (m *Metrics) RecordClaimed() {
	if m == nil {
		return
	}
	m.ComponentsClaimed.Inc()
	m.PendingComponents.Dec()
}

// RecordClaimMiss bumps the miss counter
func (m *Metrics) RecordClaimMiss() {
	if m == nil {
		return
	}
	m.ClaimMisses.Inc()
}
