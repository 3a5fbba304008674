package resolve

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirrors the resolver's running stats onto a private Prometheus
// registry — a *prometheus.Registry owned by this Metrics value, never the
// global default registry, so multiple Loaders in one process (tests, for
// instance) don't collide, following the teacher's module.MetricsCollector
// pattern.
type Metrics struct {
	registry *prometheus.Registry

	Failed   prometheus.Counter
	Depends  prometheus.Counter
	Critical prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "featureloader_feature_failures_total",
			Help: "Features that failed to load, for any reason.",
		}),
		Depends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "featureloader_unmet_dependencies_total",
			Help: "Unmet hard dependencies (or false load callbacks) encountered.",
		}),
		Critical: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "featureloader_critical_failures_total",
			Help: "Feature failures attributable to a critical module.",
		}),
	}
	reg.MustRegister(m.Failed, m.Depends, m.Critical)
	return m
}

// Registry exposes the private registry for an operator to scrape.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
