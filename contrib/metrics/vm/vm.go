package vm

import (
	"fmt"
	"io"
	"net/http"

	"github.com/VictoriaMetrics/metrics"

	"github.com/arloliu/reel/types"
)

// Option configures a Collector.
type Option func(*Collector)

// WithPrefix sets the metric name prefix.
//
// Default: "reel"
//
// Parameters:
//   - prefix: The prefix to use for all metric names
//
// Returns:
//   - Option: A configuration option
func WithPrefix(prefix string) Option {
	return func(c *Collector) {
		c.prefix = prefix
	}
}

// WithMetricsSet sets the metrics set to use.
//
// If provided, the collector will register metrics with this set instead of
// creating a new one. The caller is responsible for exposing this set
// (e.g., via metrics.WritePrometheus or a custom handler).
//
// Parameters:
//   - set: The metrics set to use
//
// Returns:
//   - Option: A configuration option
func WithMetricsSet(set *metrics.Set) Option {
	return func(c *Collector) {
		c.set = set
	}
}

// Collector implements types.MetricsCollector using VictoriaMetrics.
//
// Thread-safe for concurrent use by recorders and replay workers.
type Collector struct {
	set    *metrics.Set
	prefix string

	// Subscription metrics
	subsStarted   *metrics.Counter
	subsCompleted *metrics.Counter
	subsCancelled *metrics.Counter
	subsFailed    *metrics.Counter

	// Pacing metrics
	paceDelay *metrics.Histogram
}

// Compile-time assertion that Collector implements types.MetricsCollector.
var _ types.MetricsCollector = (*Collector)(nil)

// New creates a new VictoriaMetrics-based metrics collector.
//
// The collector creates its own metrics.Set and registers it globally
// unless WithMetricsSet provides one.
//
// Parameters:
//   - opts: Configuration options (e.g., WithPrefix)
//
// Returns:
//   - *Collector: A new metrics collector ready for use
//
// Example:
//
//	collector := vm.New(vm.WithPrefix("myapp"))
//	journal, _ := reel.Open(dir, reel.WithMetrics(collector))
func New(opts ...Option) *Collector {
	c := &Collector{
		prefix: "reel",
	}

	for _, opt := range opts {
		opt(c)
	}

	// If no set is provided, create a new one and register it globally.
	// If a set is provided, we assume the caller manages it.
	if c.set == nil {
		c.set = metrics.NewSet()
		metrics.RegisterSet(c.set)
	}

	c.initMetrics()

	return c
}

// initMetrics pre-creates the unlabeled metrics with the configured prefix.
func (c *Collector) initMetrics() {
	p := c.prefix

	c.subsStarted = c.set.NewCounter(p + "_subscriptions_started_total")
	c.subsCompleted = c.set.NewCounter(p + "_subscriptions_completed_total")
	c.subsCancelled = c.set.NewCounter(p + "_subscriptions_cancelled_total")
	c.subsFailed = c.set.NewCounter(p + "_subscriptions_failed_total")
	c.paceDelay = c.set.NewHistogram(p + "_pace_delay_seconds")
}

// filterCounter returns the filter-labeled counter for the metric name.
func (c *Collector) filterCounter(name, filter string) *metrics.Counter {
	return c.set.GetOrCreateCounter(fmt.Sprintf(`%s_%s{filter=%q}`, c.prefix, name, filter))
}

func (c *Collector) Set() *metrics.Set {
	return c.set
}

// Handler returns an HTTP handler that exposes metrics in Prometheus format.
//
// Example:
//
//	http.HandleFunc("/metrics", collector.Handler)
func (c *Collector) Handler(w http.ResponseWriter, _ *http.Request) {
	c.set.WritePrometheus(w)
}

// WritePrometheus writes all metrics in Prometheus format to the given writer.
//
// Parameters:
//   - w: The writer to write metrics to
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// ----------------------
// Records
// ----------------------

// IncRecordAppended increments the recorded records counter for a filter.
func (c *Collector) IncRecordAppended(filter string) {
	c.filterCounter("records_appended_total", filter).Inc()
}

// IncRecordDelivered increments the delivered records counter for a filter.
func (c *Collector) IncRecordDelivered(filter string) {
	c.filterCounter("records_delivered_total", filter).Inc()
}

// IncRecordSkipped increments the skipped records counter for a filter.
func (c *Collector) IncRecordSkipped(filter string) {
	c.filterCounter("records_skipped_total", filter).Inc()
}

// ----------------------
// Subscriptions
// ----------------------

// IncSubscriptionStarted increments the counter of opened subscriptions.
func (c *Collector) IncSubscriptionStarted() {
	c.subsStarted.Inc()
}

// IncSubscriptionCompleted increments the counter of completed subscriptions.
func (c *Collector) IncSubscriptionCompleted() {
	c.subsCompleted.Inc()
}

// IncSubscriptionCancelled increments the counter of cancelled subscriptions.
func (c *Collector) IncSubscriptionCancelled() {
	c.subsCancelled.Inc()
}

// IncSubscriptionFailed increments the counter of failed subscriptions.
func (c *Collector) IncSubscriptionFailed() {
	c.subsFailed.Inc()
}

// ----------------------
// Pacing
// ----------------------

// ObservePaceDelay records one ACTUAL_TIME replay delay in seconds.
func (c *Collector) ObservePaceDelay(seconds float64) {
	c.paceDelay.Update(seconds)
}
