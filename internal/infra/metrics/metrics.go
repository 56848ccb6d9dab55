package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики движка бронирования. Регистрируются в дефолтном реестре,
// отдаются через promhttp на сервисном HTTP-порту.
var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gym_bookings_created_total",
		Help: "Successfully created bookings.",
	})

	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gym_bookings_cancelled_total",
		Help: "Cancelled bookings, including cascade children.",
	})

	ReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gym_reservation_conflicts_total",
		Help: "Reservation attempts rejected due to interval conflict or maintenance.",
	})

	InsufficientBalance = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gym_insufficient_balance_total",
		Help: "Charges rejected due to insufficient token balance.",
	})

	CascadeChildFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gym_cascade_child_failures_total",
		Help: "Auto-booking cascade children that could not be reserved or charged.",
	})

	LedgerInconsistencies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gym_ledger_inconsistencies_total",
		Help: "Fatal consistency conditions (failed compensations) requiring manual audit.",
	})
)
