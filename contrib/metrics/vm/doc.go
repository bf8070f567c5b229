// Package vm provides a VictoriaMetrics-based implementation of the MetricsCollector interface.
//
// This package uses github.com/VictoriaMetrics/metrics for lightweight,
// high-performance Prometheus-compatible metrics collection.
//
// # Basic Usage
//
// Create a collector with default prefix "reel":
//
//	collector := vm.New()
//	journal, _ := reel.Open(dir,
//	    reel.WithMetrics(collector),
//	)
//
// # Custom Prefix
//
// Use WithPrefix to customize the metric name prefix:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//
// This produces metrics like:
//   - myapp_records_appended_total{filter="prices"}
//   - myapp_subscriptions_completed_total
//
// # Exposing Metrics
//
// Use the Handler method to expose metrics via HTTP:
//
//	http.HandleFunc("/metrics", collector.Handler)
//	http.ListenAndServe(":8080", nil)
//
// Or use WritePrometheus to write metrics to a custom writer:
//
//	collector.WritePrometheus(w)
//
// # Metrics Provided
//
// Records:
//   - {prefix}_records_appended_total{filter} - Counter of recorded records
//   - {prefix}_records_delivered_total{filter} - Counter of records delivered to subscribers
//   - {prefix}_records_skipped_total{filter} - Counter of in-window records skipped by filter
//
// Subscriptions:
//   - {prefix}_subscriptions_started_total - Counter of subscriptions opened
//   - {prefix}_subscriptions_completed_total - Counter of subscriptions ended by OnComplete
//   - {prefix}_subscriptions_cancelled_total - Counter of subscriptions ended by Cancel
//   - {prefix}_subscriptions_failed_total - Counter of subscriptions ended by OnError
//
// Pacing:
//   - {prefix}_pace_delay_seconds - Histogram of ACTUAL_TIME replay delays
//
// # Performance Notes
//
// Subscription counters and the pacing histogram are pre-created at
// initialization time. The per-record counters carry a filter label whose
// values are only known at runtime, so they use the GetOrCreateXXX pattern;
// VictoriaMetrics caches the lookup, keeping the hot path allocation-free
// after the first record of each filter.
//
// The metrics are registered with a dedicated Set that is registered
// globally, allowing standard Prometheus scraping.
package vm
