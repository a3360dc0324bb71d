package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersCreatedTotal,
		ordersCancelledTotal,
		ordersExpiredTotal,
		ordersRefundedTotal,
	)
}

var (
	ordersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created, by order type and payment method.",
		},
		[]string{"type", "method"},
	)

	ordersCancelledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Orders cancelled, by actor (user/admin).",
		},
		[]string{"actor"},
	)

	ordersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "Pending orders expired by the timeout sweep.",
		},
	)

	ordersRefundedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_refunded_total",
			Help: "Paid orders refunded.",
		},
	)
)

func IncOrderCreated(orderType, method string) {
	ordersCreatedTotal.WithLabelValues(norm(orderType), norm(method)).Inc()
}

func IncOrderCancelled(actor string) {
	ordersCancelledTotal.WithLabelValues(norm(actor)).Inc()
}

func AddOrdersExpired(n int) {
	if n > 0 {
		ordersExpiredTotal.Add(float64(n))
	}
}

func IncOrderRefunded() { ordersRefundedTotal.Inc() }
