// Package metric exposes Prometheus metrics for wait sets, entities and
// transports.
//
// A MetricsRegistry owns a private prometheus.Registry so several
// contexts in one process do not collide on the default registry:
//
//	registry := metric.NewMetricsRegistry()
//	err := ctx.Init(rcl.InitOptions{Transport: t, Metrics: registry.CoreMetrics()})
//
// The library records into registry.Metrics:
//
//	semrcl_wait_set_waits_total{result}
//	semrcl_wait_set_wait_duration_seconds
//	semrcl_entities_active{kind}
//	semrcl_messages_published_total{topic}
//	semrcl_messages_taken_total{topic}
//	semrcl_messages_lost_total{topic}
//	semrcl_errors_total{code}
//	semrcl_transport_connected
//	semrcl_transport_reconnects_total
//
// Handler serves the registry for scraping and Server wraps it in an HTTP
// listener. WriteText dumps the semrcl families in the text format, which
// is how short-lived command line runs report what they did.
package metric
