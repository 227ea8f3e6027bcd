// Package component defines the visualization component contract and
// the built-in component kinds.
//
// # Overview
//
// A Component is one unit of browser-facing functionality attached to
// a session: a control panel, a slider, a value graph. Components are
// instantiated from a Spec against a Host (the owning session), may
// add temporary nodes and probes to the model during construction,
// and must remove them again via RemoveModelObjects once the session
// has built its simulator.
//
// # Kind Registry
//
// Component kinds are registered by name with a JSON Schema describing
// their options. NewSpec validates options against the kind's schema
// before a Spec ever reaches a template, so malformed configuration is
// surfaced synchronously to the configuration caller:
//
//	spec, err := component.NewSpec("slider", map[string]any{
//	    "target": "stim",
//	    "min":    -1.0,
//	    "max":    1.0,
//	})
//
// The registry is open-ended: new kinds register themselves in init(),
// the way the built-in control, slider, and value kinds do.
//
// # Lifecycle
//
// instantiate → Bind (once, at registration) → optionally claimed by a
// connection → RemoveModelObjects (exactly once, under the build lock).
// Payload may be called at any point in that lifecycle, including
// before the model mutation has been undone.
package component
