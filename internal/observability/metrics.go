// Package observability holds the Prometheus collectors shared by the
// service and HTTP layers. Collectors register on the default registry.
package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mobility-sharing/backend/internal/domain"
)

const namespace = "mobility_sharing"

var (
	TravelsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "travels_published_total", Help: "Travel legs published, by kind"},
		[]string{"kind"},
	)
	TravelTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "travel_transitions_total", Help: "Travel status transitions, by target status"},
		[]string{"status"},
	)
	BookingOps = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "booking_operations_total", Help: "Booking operations, by operation and outcome"},
		[]string{"op", "outcome"},
	)
	GroupBookingsPartial = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "group_bookings_partial_total", Help: "Group bookings that stopped after booking some members"},
	)
	RatingsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ratings_submitted_total", Help: "Rating submissions, by outcome"},
		[]string{"outcome"},
	)
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "geocode_lookups_total", Help: "Geocoder lookups, by result"},
		[]string{"result"},
	)
	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "event_publish_failures_total", Help: "Domain events that could not be published"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "route", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Outcome maps an operation error to a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrUnauthorized):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
