package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		paymentOrdersTotal,
		paymentsApprovedTotal,
		paymentsRevenueTotal,
	)
}

var (
	paymentOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pix_orders_total",
			Help: "PIX order creation attempts by result (created/rejected/invalid/rate_limited).",
		},
		[]string{"result"},
	)

	paymentsApprovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pix_payments_approved_total",
			Help: "Payment intents approved, labeled by plan type.",
		},
		[]string{"plan_type"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pix_payments_revenue_total",
			Help: "The total monetary value of approved payments, labeled by currency.",
		},
		[]string{"currency"},
	)
)

func IncOrder(result string) {
	paymentOrdersTotal.WithLabelValues(norm(result)).Inc()
}

func IncApproved(planType, currency string, amount decimal.Decimal) {
	paymentsApprovedTotal.WithLabelValues(norm(planType)).Inc()
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(amount.InexactFloat64())
}
