package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "villamar",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	admissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "villamar",
			Name:      "admissions_total",
			Help:      "Reservation admission attempts by result.",
		},
		[]string{"result"},
	)

	cancellations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "villamar",
			Name:      "cancellations_total",
			Help:      "Successful reservation cancellations.",
		},
	)

	sweepTransitions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "villamar",
			Name:      "sweep_transitions_total",
			Help:      "Reservations moved to completed by the lifecycle sweep.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, admissions, cancellations, sweepTransitions)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncAdmission records an admission attempt outcome
// (admitted, capacity_exceeded, duplicate, validation, error).
func IncAdmission(result string) {
	admissions.WithLabelValues(result).Inc()
}

// IncCancellation records a successful cancellation.
func IncCancellation() {
	cancellations.Inc()
}

// AddSweepTransitions records how many rows one sweep completed.
func AddSweepTransitions(n int64) {
	sweepTransitions.Add(float64(n))
}
