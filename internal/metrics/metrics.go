package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctor_booking_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doctor_booking_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctor_booking_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"result"},
	)

	CancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "doctor_booking_cancellations_total",
			Help: "Appointments cancelled",
		},
	)

	SlotDefinitionOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doctor_booking_slot_definition_ops_total",
			Help: "Slot definition create/update/delete attempts by outcome",
		},
		[]string{"op", "result"},
	)

	// Refreshed periodically for the current date.
	FreeSlots = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "doctor_booking_free_slots",
			Help: "Unbooked slots left today per doctor",
		},
		[]string{"doctor_id"},
	)
)

func RecordBooking(result string) {
	BookingsTotal.WithLabelValues(result).Inc()
}

func RecordSlotDefinitionOp(op, result string) {
	SlotDefinitionOpsTotal.WithLabelValues(op, result).Inc()
}
