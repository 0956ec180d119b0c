package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mercator-hq/flowgate/pkg/config"
)

// Collector owns the process metrics registry. Guard metrics are registered
// on Registry() by limits.NewMetrics; the collector itself records HTTP
// request metrics and the Go runtime and process collectors.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates a collector for cfg. If registry is nil a new one is
// created.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	observer := limits.NewMetrics(collector.Registry(), collector.Namespace())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	ns := cfg.Namespace
	if ns == "" {
		ns = config.DefaultMetricsNamespace
	}

	factory := promauto.With(registry)
	return &Collector{
		config:   cfg,
		registry: registry,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "http_requests_total",
				Help:      "HTTP requests served, by route and status code.",
			},
			[]string{"route", "code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency, by route.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"route"},
		),
	}
}

// Registry returns the registry metrics should be registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Namespace returns the metric namespace.
func (c *Collector) Namespace() string {
	if c.config.Namespace == "" {
		return config.DefaultMetricsNamespace
	}
	return c.config.Namespace
}

// Path returns the path the metrics handler should be mounted on.
func (c *Collector) Path() string {
	if c.config.Path == "" {
		return config.DefaultMetricsPath
	}
	return c.config.Path
}

// Enabled reports whether the metrics endpoint should be served.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// RecordHTTPRequest records one served request. route is the mux pattern,
// not the raw path, to bound cardinality.
func (c *Collector) RecordHTTPRequest(route string, code int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
