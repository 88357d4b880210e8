package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Write-path metrics
	CommandsSubmitted *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	EventsAppended    prometheus.Counter

	// Read-path metrics
	ProjectionsApplied prometheus.Counter
	ProjectionsSkipped prometheus.Counter
	ProjectionRetries  prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		CommandsSubmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commands_submitted_total",
				Help: "Total number of submitted commands by type and result",
			},
			[]string{"command", "result"},
		),
		CommandDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "command_duration_seconds",
				Help:    "Command submission duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"command"},
		),
		EventsAppended: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "events_appended_total",
				Help: "Total number of events durably appended to the event store",
			},
		),
		ProjectionsApplied: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "projections_applied_total",
				Help: "Total number of events folded into the read model",
			},
		),
		ProjectionsSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "projections_skipped_total",
				Help: "Total number of redelivered events skipped by sequence check",
			},
		),
		ProjectionRetries: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "projection_retries_total",
				Help: "Total number of read-model apply retries after transient failures",
			},
		),
	}
}
