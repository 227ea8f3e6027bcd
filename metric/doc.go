// Package metric provides Prometheus metrics for nengo-viz.
//
// A Registry wraps a dedicated prometheus.Registry (plus the standard
// Go and process collectors) and exposes the platform metrics tracked
// by the organizer, sessions, and the component registry: session
// counts and states, build durations and failures, registered/claimed
// component counts, and simulation step totals. The server mounts
// Handler() at /metrics.
//
// All metric instances are optional throughout the codebase: a nil
// *Registry disables recording without branching at call sites.
package metric
