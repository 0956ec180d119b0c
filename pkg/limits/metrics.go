package limits

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mercator-hq/flowgate/pkg/gate"
	"mercator-hq/flowgate/pkg/guard"
)

// Metrics exports guarded call activity to Prometheus. It implements
// guard.Observer; attach it with guard.WithObserver.
type Metrics struct {
	calls    *prometheus.CounterVec
	blocks   *prometheus.CounterVec
	inFlight *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the guard collectors with reg under namespace.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_calls_total",
				Help:      "Total number of guarded calls by outcome",
			},
			[]string{"resource", "entry_type", "outcome"},
		),

		blocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guard_blocks_total",
				Help:      "Total number of rejected entries by reason",
			},
			[]string{"resource", "reason"},
		),

		inFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "guard_in_flight",
				Help:      "Current number of admitted calls still running",
			},
			[]string{"resource"},
		),

		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "guard_duration_seconds",
				Help:      "Duration of guarded calls in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 15), // 0.5ms to ~8s
			},
			[]string{"resource"},
		),
	}
}

// Admitted implements guard.Observer.
func (m *Metrics) Admitted(_ context.Context, res gate.Resource) {
	m.inFlight.WithLabelValues(res.Name()).Inc()
}

// Completed implements guard.Observer.
func (m *Metrics) Completed(_ context.Context, res gate.Resource, outcome guard.Outcome, err error, elapsed time.Duration) {
	m.calls.WithLabelValues(res.Name(), res.EntryType().String(), outcome.String()).Inc()

	if outcome == guard.OutcomeBlocked {
		reason := "unknown"
		var blockErr *gate.BlockError
		if errors.As(err, &blockErr) {
			reason = blockErr.Reason
		}
		m.blocks.WithLabelValues(res.Name(), reason).Inc()
		return
	}

	m.inFlight.WithLabelValues(res.Name()).Dec()
	m.duration.WithLabelValues(res.Name()).Observe(elapsed.Seconds())
}

// RegisterCounters exposes a Counters set as three counters
// (<namespace>_guard_total, _pass and _block) read on scrape.
func RegisterCounters(reg prometheus.Registerer, namespace string, counters *guard.Counters) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_total",
			Help:      "Guarded calls started",
		}, func() float64 { return float64(counters.Total()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_pass",
			Help:      "Guarded calls admitted",
		}, func() float64 { return float64(counters.Pass()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_block",
			Help:      "Guarded calls rejected",
		}, func() float64 { return float64(counters.Block()) }),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
