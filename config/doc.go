// Package config loads and validates the nengo-viz configuration file.
//
// Configuration is a single YAML document covering the server (port,
// browser auto-open), the simulation (time step and run-loop quantum),
// logging, and an optional list of components pre-configured into the
// organizer's template:
//
//	server:
//	  port: 8080
//	  open_browser: true
//	simulation:
//	  dt: 0.001
//	  quantum: 0.1
//	logging:
//	  level: info
//	  format: json
//	components:
//	  - kind: slider
//	    options:
//	      target: stim
//	      min: -1
//	      max: 1
//	  - kind: value
//	    options:
//	      target: stim
//
// Load applies defaults first, then the file, then validates. Invalid
// values fail with invalid-classed errors before anything starts.
package config
