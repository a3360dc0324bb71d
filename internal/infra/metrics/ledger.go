package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(ledgerChangesTotal, ledgerPointsTotal)
}

var (
	ledgerChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_changes_total",
			Help: "Ledger records appended, by change type.",
		},
		[]string{"type"},
	)

	ledgerPointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_points_total",
			Help: "Absolute points moved through the ledger, by change type.",
		},
		[]string{"type"},
	)
)

func AddLedgerChange(changeType string, change int64) {
	ledgerChangesTotal.WithLabelValues(norm(changeType)).Inc()
	if change < 0 {
		change = -change
	}
	ledgerPointsTotal.WithLabelValues(norm(changeType)).Add(float64(change))
}
