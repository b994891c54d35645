package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		webhookOutcomesTotal,
		webhookDuration,
	)
}

var (
	// kind: ignored|applied|failed
	// reason: bounded set produced by the reconciler (unsupported_event, bad_signature, ...)
	webhookOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_outcomes_total",
			Help: "Processor webhook deliveries by reconciliation outcome and reason.",
		},
		[]string{"kind", "reason"},
	)

	webhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_duration_seconds",
			Help:    "Time spent reconciling one webhook delivery.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"kind"},
	)
)

func ObserveWebhook(kind, reason string, d time.Duration) {
	webhookOutcomesTotal.WithLabelValues(norm(kind), norm(reason)).Inc()
	webhookDuration.WithLabelValues(norm(kind)).Observe(d.Seconds())
}
