// Package metrics provides observability for the directory module.
// Tracks lifecycle operation counts, durations, and the compensation and
// email-rotation paths that matter during incident review.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the directory module collectors.
type Metrics struct {
	Operations            *prometheus.CounterVec
	OperationDuration     *prometheus.HistogramVec
	CompensationsRun      prometheus.Counter
	CompensationsFailed   prometheus.Counter
	EmailRotationsFailed  prometheus.Counter
	InconsistenciesLogged prometheus.Counter
}

// New creates a Metrics instance with all directory collectors registered.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_lifecycle_operations_total",
			Help: "Lifecycle operations by role, operation, and outcome",
		}, []string{"role", "operation", "outcome"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_lifecycle_operation_duration_seconds",
			Help:    "Duration of lifecycle operations end to end",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"role", "operation"}),
		CompensationsRun: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_compensations_total",
			Help: "Compensating actions attempted after a failed forward step",
		}),
		CompensationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_compensations_failed_total",
			Help: "Compensating actions that themselves failed",
		}),
		EmailRotationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_email_rotations_failed_total",
			Help: "Primary email rotations that failed and were swallowed",
		}),
		InconsistenciesLogged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_inconsistencies_logged_total",
			Help: "Accepted cross-store inconsistency windows recorded to the ledger",
		}),
	}
}

// ObserveOperation records one finished lifecycle operation.
func (m *Metrics) ObserveOperation(role, operation string, success bool, start time.Time) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.Operations.WithLabelValues(role, operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(role, operation).Observe(time.Since(start).Seconds())
}
