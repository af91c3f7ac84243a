// Package health reports the state of transports and contexts.
//
// A Status is healthy, degraded or unhealthy. Transports that implement
// rmw.HealthReporter build one from their connection state with
// FromConnection, and rcl.Context.Health wraps the transport's report:
//
//	status := health.Aggregate("context", transport.Health())
//	if status.IsUnhealthy() {
//	    logger.Warn("Transport down", "reason", status.Message)
//	}
//
// Aggregation is pessimistic: the aggregate takes the worst state found
// among its sub-statuses.
//
// Error text placed in a Status by FromConnection passes through Sanitize
// first, which replaces server URLs, credential assignments, file paths and
// network addresses with placeholders.
package health
