// Package nengoviz serves interactive visualization sessions for neural
// simulation models over HTTP and websockets.
//
// # Architecture
//
// One Organizer coordinates all sessions for a single model:
//
//	┌─────────────────────────────────────┐
//	│           HTTP Server               │  page requests,
//	│   (index page, /viz_component)      │  websocket upgrade
//	└─────────────────────────────────────┘
//	           ↓ creates
//	┌─────────────────────────────────────┐
//	│            Organizer                │  template, build lock,
//	│   (per-model session coordinator)   │  component registry
//	└─────────────────────────────────────┘
//	           ↓ runs
//	┌─────────────────────────────────────┐
//	│            Sessions                 │  build → run loop →
//	│   (one per page load, background)   │  finish, stripped model
//	└─────────────────────────────────────┘
//
// Each page load instantiates the organizer's component template against
// the shared model, builds a simulator under the organizer's build lock,
// strips the temporary instrumentation back out, and then steps the
// simulator in its own goroutine until the page goes away. Component
// instances are handed from the page that created them to the websocket
// that claims them exactly once, keyed by UUID.
//
// # Packages
//
// Core:
//   - viz: Organizer and Session lifecycle
//   - registry: one-shot component handoff by id
//   - component: component kinds (control, slider, value) and spec validation
//   - model: the shared model and simulator attachment
//
// Infrastructure:
//   - server: HTTP/websocket surface
//   - config: YAML configuration
//   - metric: Prometheus metrics
//   - errors: structured error handling
//
// # Binary
//
// Build and run:
//
//	go build ./cmd/nengoviz
//	./nengoviz --config configs/example.yaml
//
// The binary serves a demo model when no model wiring is configured.
package nengoviz
