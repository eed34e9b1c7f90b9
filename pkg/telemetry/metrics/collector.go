package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"expirito-hq/expirito/pkg/config"
	"expirito-hq/expirito/pkg/retention"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "retention"

// passDurationBuckets spans quick passes over small directories up to
// multi-minute walks of large trees.
var passDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300}

// Collector owns the Prometheus registry for a retention run. It is both a
// retention.Sink and a retention.PassObserver, so it can be handed straight
// to the engine.
//
// A disabled collector accepts every call and records nothing.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	retentionMetrics *RetentionMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//	engine := retention.NewEngine(collector, retention.WithObserver(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		config:   *cfg,
		registry: registry,
	}
	if c.config.Namespace == "" {
		c.config.Namespace = config.DefaultMetricsNamespace
	}

	c.retentionMetrics = NewRetentionMetrics(&c.config, registry)

	return c
}

// Record counts one action. Failed actions are counted in both
// actions_total and failures_total.
func (c *Collector) Record(action retention.Action) {
	if !c.config.Enabled {
		return
	}

	c.retentionMetrics.actionsTotal.WithLabelValues(
		string(action.Kind),
		string(action.Phase),
		strconv.FormatBool(action.DryRun),
	).Inc()

	if action.Failed() {
		c.retentionMetrics.failuresTotal.WithLabelValues(
			string(action.Phase),
			retention.FailureReason(action.Err),
		).Inc()
	}
}

// ObservePass records the duration of a completed pass.
func (c *Collector) ObservePass(result retention.PassResult) {
	if !c.config.Enabled {
		return
	}

	c.retentionMetrics.passDuration.WithLabelValues(string(result.Phase)).Observe(result.Duration.Seconds())
}

// MarkRunComplete records the completion of a run at the given time.
func (c *Collector) MarkRunComplete(at time.Time, dryRun bool, failures int) {
	if !c.config.Enabled {
		return
	}

	label := strconv.FormatBool(dryRun)
	c.retentionMetrics.lastRunTimestamp.WithLabelValues(label).Set(float64(at.UnixNano()) / 1e9)
	c.retentionMetrics.lastRunFailures.WithLabelValues(label).Set(float64(failures))
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for node_exporter's textfile collector. The file is
// replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if !c.config.Enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %q: %w", path, err)
	}
	return nil
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
