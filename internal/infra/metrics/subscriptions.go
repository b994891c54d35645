package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionActivationsTotal,
		unknownPlanFallbackTotal,
	)
}

var (
	subscriptionActivationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_activations_total",
			Help: "Subscription activations by plan type and mode (created/renewed).",
		},
		[]string{"plan_type", "mode"},
	)

	unknownPlanFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscription_unknown_plan_fallback_total",
			Help: "Activations whose plan type was unknown and fell back to one month.",
		},
	)
)

func IncActivation(planType, mode string) {
	subscriptionActivationsTotal.WithLabelValues(norm(planType), norm(mode)).Inc()
}

func IncUnknownPlanFallback() { unknownPlanFallbackTotal.Inc() }
