// Package viz coordinates browser visualization sessions for one
// continuously-running simulation model.
//
// # Overview
//
// An Organizer is the per-model coordinator. It owns the template of
// component specifications applied to every new session, the build
// lock serializing all model mutation, and the handoff registry that
// connections claim components from. A Session is one end-to-end
// attachment of a runnable simulator to a set of instantiated
// components.
//
// # Control Flow
//
// The listener calls CreateSession once per accepted top-level
// connection. CreateSession instantiates one component per template
// entry on the calling path and registers each in the handoff
// registry before returning. Start then launches the background path,
// which:
//
//  1. Acquires the organizer's build lock.
//  2. Builds a simulator via the organizer's factory.
//  3. Removes every component's temporary model objects, in template
//     order.
//  4. Releases the lock and enters the run loop.
//  5. Advances the simulation one quantum per iteration until Finish
//     is called or the context is cancelled.
//
// The build lock is the only cross-session synchronization point; the
// registry synchronizes itself independently. At most one session
// holds the build lock at any instant, so the model-mutation phase of
// two sessions never overlaps.
//
// # Cancellation
//
// Finish is cooperative: the run loop observes it at quantum
// boundaries only, so stop latency is bounded by one quantum. A stop
// requested while a session is still building takes effect once the
// build settles; the build still completes and strips instrumentation,
// but no simulation step runs.
package viz
