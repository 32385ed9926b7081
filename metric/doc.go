// Package metric provides Prometheus instrumentation for bridginghub
// pipeline passes.
//
// # Overview
//
// Every run owns a private [Registry] created with [NewRegistry]. The
// registry carries record counters labeled by segment and pass-level
// counters and histograms labeled by action. Nothing is registered on the
// Prometheus default registry, so tests and embedded runs never trip over
// duplicate collector registration.
//
// # Metrics
//
// Record counters, all labeled by segment:
//
//	bridginghub_records_collected_total
//	bridginghub_records_staged_total
//	bridginghub_records_delivered_total
//	bridginghub_records_failed_total
//	bridginghub_records_archived_total
//	bridginghub_records_junked_total
//
// Pass metrics, labeled by action:
//
//	bridginghub_pass_runs_total{action,status}
//	bridginghub_pass_duration_seconds{action}
//
// # Export
//
// A pass is a short-lived process, so there is no scrape endpoint. Instead
// [Registry.WriteTextfile] dumps the registry in text exposition format for
// the node_exporter textfile collector:
//
//	registry := metric.NewRegistry()
//	// ... run the pass ...
//	if err := registry.WriteTextfile("/var/lib/node_exporter/bridginghub.prom"); err != nil {
//		log.Error("metrics export failed", "error", err)
//	}
//
// All Record* helpers tolerate a nil receiver, so pipeline code can carry an
// optional *Registry without guarding every call site.
package metric
