package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	checkoutAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront_checkout",
			Subsystem: "http",
			Name:      "checkout_accepted_total",
			Help:      "Total number of checkouts accepted",
		},
	)

	checkoutRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront_checkout",
			Subsystem: "http",
			Name:      "checkout_rejected_total",
			Help:      "Total number of checkouts rejected by reason",
		},
		[]string{"reason"},
	)

	stockConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront_checkout",
			Subsystem: "http",
			Name:      "stock_conflicts_total",
			Help:      "Total number of cart lines rejected for insufficient stock",
		},
	)

	quoteDegradations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront_checkout",
			Subsystem: "http",
			Name:      "quote_degradations_total",
			Help:      "Total number of shipping quotes degraded to a zero fee",
		},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront_checkout",
			Subsystem: "http",
			Name:      "status_transitions_total",
			Help:      "Total number of manual status transitions by target status",
		},
		[]string{"to"},
	)

	paymentCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront_checkout",
			Subsystem: "http",
			Name:      "payment_callbacks_total",
			Help:      "Total number of gateway return callbacks by result",
		},
		[]string{"result"},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(
		checkoutAccepted,
		checkoutRejected,
		stockConflicts,
		quoteDegradations,
		statusTransitions,
		paymentCallbacks,
	)
}
