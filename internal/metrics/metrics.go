package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_total",
		Help: "Payment orchestrations by provider and outcome.",
	}, []string{"provider", "status"})

	PaymentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_duration_seconds",
		Help:    "End-to-end orchestration latency by provider.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// LedgerAnomalies counts provider charges that could not be recorded.
	// A nonzero rate here means money may have moved without a matching
	// ledger row and the settlement audit needs to reconcile.
	LedgerAnomalies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_anomalies_total",
		Help: "Successful provider calls whose ledger write failed.",
	})
)
