package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiketa_registrations_total",
			Help: "Ticket registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	paymentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiketa_payment_transitions_total",
			Help: "Payment reconciliation transitions by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	verificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiketa_ticket_verifications_total",
			Help: "Ticket verification scans by result",
		},
		[]string{"result"},
	)
)

func RecordRegistration(outcome string) {
	registrationsTotal.WithLabelValues(outcome).Inc()
}

func RecordPaymentTransition(operation, outcome string) {
	paymentTransitions.WithLabelValues(operation, outcome).Inc()
}

func RecordVerification(result string) {
	verificationsTotal.WithLabelValues(result).Inc()
}
