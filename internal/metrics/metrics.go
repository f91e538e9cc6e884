package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coachly",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coachly",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	calendarSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coachly",
			Name:      "calendar_syncs_total",
			Help:      "Calendar sync attempts by result.",
		},
		[]string{"result"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coachly",
			Name:      "notifications_total",
			Help:      "Notification sends by transport outcome.",
		},
		[]string{"transport"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookings, calendarSyncs, notifications)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBooking records a booking attempt outcome (created, conflict, error).
func IncBooking(outcome string) {
	bookings.WithLabelValues(outcome).Inc()
}

// IncCalendarSync records a sync result (ok, failed, skipped).
func IncCalendarSync(result string) {
	calendarSyncs.WithLabelValues(result).Inc()
}

// IncNotification records which transport delivered (primary,
// fallback) or that both failed (failed).
func IncNotification(transport string) {
	notifications.WithLabelValues(transport).Inc()
}
