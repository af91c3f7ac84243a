package metric

import (
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/c360/semrcl/errors"
)

// MetricsRegistry owns a private Prometheus registry holding the library
// metrics and the Go runtime collectors.
type MetricsRegistry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
}

// NewMetricsRegistry creates a registry with the library metrics registered
func NewMetricsRegistry() *MetricsRegistry {
	registry := &MetricsRegistry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            NewMetrics(),
	}

	registry.prometheusRegistry.MustRegister(registry.Metrics.collectors()...)
	registry.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the library metrics. A nil registry yields nil
// metrics, which disables recording.
func (r *MetricsRegistry) CoreMetrics() *Metrics {
	if r == nil {
		return nil
	}
	return r.Metrics
}

// Handler serves the registry in the Prometheus exposition format
func (r *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// WriteText writes the semrcl metric families in the Prometheus text
// format. Runtime collectors are left out.
func (r *MetricsRegistry) WriteText(w io.Writer) error {
	families, err := r.prometheusRegistry.Gather()
	if err != nil {
		return errors.Wrap(err, "MetricsRegistry", "WriteText", "gather metrics")
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if !ownFamily(mf.GetName()) {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return errors.Wrap(err, "MetricsRegistry", "WriteText", "encode "+mf.GetName())
		}
	}
	return nil
}

func ownFamily(name string) bool {
	return len(name) > len(namespace) && name[:len(namespace)+1] == namespace+"_"
}
