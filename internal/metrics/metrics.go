// Package metrics registers the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Debits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wishforge",
		Name:      "debits_total",
		Help:      "Debit attempts by outcome.",
	}, []string{"outcome"})

	Reconciles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wishforge",
		Name:      "purchase_reconciles_total",
		Help:      "Purchase reconciliations by outcome.",
	}, []string{"outcome"})

	ExtractionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wishforge",
		Name:      "extraction_attempts_total",
		Help:      "Model extraction attempts by outcome.",
	}, []string{"outcome"})

	ExtractionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wishforge",
		Name:      "extraction_fallbacks_total",
		Help:      "Extractions that exhausted the attempt budget.",
	})
)

// Outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeInsufficient = "insufficient_credits"
	OutcomeError        = "error"
	OutcomeDuplicate    = "already_processed"
	OutcomeNotPaid      = "not_paid"
	OutcomeNoAccount    = "no_account"
	OutcomeInvalid      = "invalid_output"
)
