// Package health provides health monitoring for the visualization server
// with thread-safe status tracking and aggregation.
//
// # Health States
//
// The package supports three health states:
//   - Healthy: operating normally
//   - Degraded: operating with reduced functionality
//   - Unhealthy: not functioning properly
//
// A building session reports degraded (the page is not interactive yet),
// a running one healthy, and a failed build unhealthy. The server's
// /healthz endpoint aggregates these into one system status.
//
// # Basic Usage
//
//	monitor := health.NewMonitor()
//
//	monitor.UpdateHealthy("server", "listening")
//	monitor.UpdateDegraded("session-1", "building")
//
//	system := monitor.Aggregate("nengoviz")
//	if system.IsUnhealthy() {
//	    // alert
//	}
package health
