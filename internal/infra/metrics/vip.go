package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(vipRenewalsTotal, vipDowngradedTotal, remindersTotal)
}

var (
	vipRenewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vip_renewals_total",
			Help: "Paid VIP renewals, split by lifetime grants.",
		},
		[]string{"kind"}, // 'duration' or 'lifetime'
	)

	vipDowngradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vip_downgraded_total",
			Help: "Users downgraded by the expiry sweep.",
		},
	)

	remindersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vip_reminders_total",
			Help: "Expiry reminders sent, by kind (expiry/winback).",
		},
		[]string{"kind"},
	)
)

func IncVIPRenewal(lifetime bool) {
	kind := "duration"
	if lifetime {
		kind = "lifetime"
	}
	vipRenewalsTotal.WithLabelValues(kind).Inc()
}

func AddVIPDowngraded(n int) {
	if n > 0 {
		vipDowngradedTotal.Add(float64(n))
	}
}

func IncReminder(kind string) {
	remindersTotal.WithLabelValues(norm(kind)).Inc()
}
