package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settled_settlements_total",
			Help: "Total number of settlement events applied",
		},
		[]string{"event", "outcome"},
	)

	LedgerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settled_ledger_entries_total",
			Help: "Total number of ledger transactions committed",
		},
		[]string{"kind"},
	)

	SweepRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "settled_sweep_runs_total",
			Help: "Total number of deadline sweep runs",
		},
	)

	SweepBookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settled_sweep_bookings_total",
			Help: "Total number of bookings advanced by the sweeper",
		},
		[]string{"action"},
	)
)

func RecordSettlement(event, outcome string) {
	SettlementsTotal.WithLabelValues(event, outcome).Inc()
}

func RecordLedgerEntry(kind string) {
	LedgerEntriesTotal.WithLabelValues(kind).Inc()
}

func RecordSweepRun() {
	SweepRunsTotal.Inc()
}

func RecordSweptBooking(action string) {
	SweepBookingsTotal.WithLabelValues(action).Inc()
}
