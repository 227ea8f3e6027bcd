// Package model holds the mutable model definition shared by all
// visualization sessions, and the boundary to the simulation engine.
//
// A Model is a named graph of nodes and probes. Visualization
// components add temporary nodes and probes to it while a session
// holds the organizer's build lock, and remove them again once the
// simulator has been built. The Simulator interface and Factory type
// describe the engine boundary; the engine's own build and step
// semantics are out of scope here.
package model
