package metrics

import (
	"expirito-hq/expirito/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RetentionMetrics tracks what retention runs did.
//
// Metrics:
//   - expirito_retention_actions_total: Actions by kind, phase and dry-run flag, failed ones included
//   - expirito_retention_failures_total: Failed actions by phase and reason
//   - expirito_retention_pass_duration_seconds: Pass duration histogram by phase
//   - expirito_retention_last_run_timestamp_seconds: Completion time of the last run
//   - expirito_retention_last_run_failures: Failed actions in the last run
type RetentionMetrics struct {
	// Actions taken or planned
	actionsTotal *prometheus.CounterVec

	// Actions that failed
	failuresTotal *prometheus.CounterVec

	// Pass duration histogram
	passDuration *prometheus.HistogramVec

	// Last run completion, as a unix timestamp
	lastRunTimestamp *prometheus.GaugeVec

	// Failures in the last run
	lastRunFailures *prometheus.GaugeVec
}

// NewRetentionMetrics creates and registers retention metrics with the provided registry.
func NewRetentionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RetentionMetrics {
	rm := &RetentionMetrics{
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: subsystem,
				Name:      "actions_total",
				Help:      "Total number of retention actions, failed ones included",
			},
			[]string{"kind", "phase", "dry_run"},
		),

		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: subsystem,
				Name:      "failures_total",
				Help:      "Total number of failed retention actions",
			},
			[]string{"phase", "reason"},
		),

		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: subsystem,
				Name:      "pass_duration_seconds",
				Help:      "Duration of retention passes in seconds",
				Buckets:   passDurationBuckets,
			},
			[]string{"phase"},
		),

		lastRunTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: subsystem,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last retention run completed",
			},
			[]string{"dry_run"},
		),

		lastRunFailures: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: subsystem,
				Name:      "last_run_failures",
				Help:      "Number of failed actions in the last retention run",
			},
			[]string{"dry_run"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		rm.actionsTotal,
		rm.failuresTotal,
		rm.passDuration,
		rm.lastRunTimestamp,
		rm.lastRunFailures,
	)

	return rm
}
