package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lazone"

// Reconcile outcomes
const (
	OutcomeCreated    = "created"
	OutcomeIdempotent = "idempotent"
	OutcomeFraud      = "fraud"
	OutcomeRejected   = "rejected"
	OutcomeError      = "error"
)

// Consumption sources
const (
	SourceFree   = "free"
	SourceLedger = "ledger"
	SourceDenied = "denied"
)

var (
	reconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "purchase",
		Name:      "reconcile_total",
		Help:      "Purchase reconciliation attempts by payment rail and outcome.",
	}, []string{"rail", "outcome"})

	consumeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "entitlement",
		Name:      "consume_total",
		Help:      "Credit consumption decisions by source.",
	}, []string{"source"})

	manualReviewTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "manual_payment",
		Name:      "review_total",
		Help:      "Administrator decisions on manual mobile-money payments.",
	}, []string{"decision"})

	registerOnce sync.Once
)

// Register adds all collectors to reg. Safe to call more than once.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(reconcileTotal, consumeTotal, manualReviewTotal)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveReconcile(rail, outcome string) {
	reconcileTotal.WithLabelValues(rail, outcome).Inc()
}

func ObserveConsume(source string) {
	consumeTotal.WithLabelValues(source).Inc()
}

func ObserveManualReview(decision string) {
	manualReviewTotal.WithLabelValues(decision).Inc()
}
