// Package server provides the HTTP and websocket listener that
// connects browsers to visualization sessions.
//
// # Routes
//
//	GET /                      page load; starts a new session and
//	                           serves the page with the session payload
//	GET /viz_component?uid=    per-component websocket; claims the
//	                           component from the organizer's registry
//	GET /metrics               Prometheus metrics (when configured)
//
// Each page load gets its own session; each component is handed to
// exactly one websocket connection, by its opaque uid. A second
// connection for the same uid is rejected, because the claim is
// one-shot.
//
// The server is the only caller into the coordination core: it calls
// StartSession once per page load and Claim once per component
// connection, exactly the boundary the core exposes.
package server
