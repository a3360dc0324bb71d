package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		callbacksTotal,
		revenueTotal,
		anomaliesTotal,
	)
}

var (
	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Inbound payment callbacks by provider and outcome (applied/replay/orphan/amount_mismatch/error/rejected).",
		},
		[]string{"provider", "outcome"},
	)

	revenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_revenue_total",
			Help: "Total monetary value of applied payments, in minor currency units.",
		},
	)

	anomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_anomalies_total",
			Help: "Anomalies recorded for manual review, by kind.",
		},
		[]string{"kind"},
	)
)

func IncCallback(provider, outcome string) {
	callbacksTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}

func AddRevenue(amount int64) {
	if amount > 0 {
		revenueTotal.Add(float64(amount))
	}
}

func IncAnomaly(kind string) {
	anomaliesTotal.WithLabelValues(norm(kind)).Inc()
}
