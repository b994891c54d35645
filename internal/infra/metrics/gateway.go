package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(gatewayRequestsTotal, gatewayDuration) }

var (
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Calls to the payment processor by operation and result.",
		},
		[]string{"gateway", "op", "result"}, // op='create_order'|'get_order', result='ok'|'error'
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Latency of calls to the payment processor.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"gateway", "op"},
	)
)

func ObserveGateway(gateway, op string, ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	gatewayRequestsTotal.WithLabelValues(norm(gateway), norm(op), result).Inc()
	gatewayDuration.WithLabelValues(norm(gateway), norm(op)).Observe(d.Seconds())
}
