package services

import "github.com/prometheus/client_golang/prometheus"

var (
	verificationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_verification_requests_total",
			Help: "Email submissions by outcome.",
		},
		[]string{"result"},
	)
	confirmOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_verification_confirms_total",
			Help: "Code submissions by outcome.",
		},
		[]string{"result"},
	)
	reservationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_reservation_operations_total",
			Help: "Reservation lifecycle operations by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	discountGames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_discount_games_total",
			Help: "Discount dice games by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(verificationOutcomes, confirmOutcomes, reservationOps, discountGames)
}
