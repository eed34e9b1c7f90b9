// Package metrics provides Prometheus metrics for expirito runs.
//
// # Overview
//
// expirito runs once and exits, so nothing is scraped. Instead the collector
// writes its registry to a file after each run, for node_exporter's textfile
// collector to pick up.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//	engine := retention.NewEngine(
//		retention.MultiSink{logSink, collector},
//		retention.WithObserver(collector),
//	)
//
//	actions, err := engine.RunAll(ctx, cfg.Retention(), now, dryRun)
//	collector.MarkRunComplete(time.Now(), dryRun, failures)
//	if err := collector.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
//		return err
//	}
//
// # Metrics
//
//	# HELP expirito_retention_actions_total Total number of retention actions, failed ones included
//	# TYPE expirito_retention_actions_total counter
//	expirito_retention_actions_total{dry_run="false",kind="moved",phase="move"} 12
//
// All label values come from closed sets (kind, phase, reason, dry_run), so
// cardinality is fixed.
package metrics
