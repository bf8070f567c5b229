// Package metrics provides internal metrics utilities for reel.
package metrics

import "github.com/arloliu/reel/types"

// NopMetrics is a no-op metrics collector that discards all metrics.
//
// This is used as the default metrics collector when no collector is
// configured, avoiding nil checks throughout the codebase.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNopMetrics creates a new no-op metrics collector.
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

// IncRecordAppended discards the metric.
func (m *NopMetrics) IncRecordAppended(_ string) {}

// IncRecordDelivered discards the metric.
func (m *NopMetrics) IncRecordDelivered(_ string) {}

// IncRecordSkipped discards the metric.
func (m *NopMetrics) IncRecordSkipped(_ string) {}

// IncSubscriptionStarted discards the metric.
func (m *NopMetrics) IncSubscriptionStarted() {}

// IncSubscriptionCompleted discards the metric.
func (m *NopMetrics) IncSubscriptionCompleted() {}

// IncSubscriptionCancelled discards the metric.
func (m *NopMetrics) IncSubscriptionCancelled() {}

// IncSubscriptionFailed discards the metric.
func (m *NopMetrics) IncSubscriptionFailed() {}

// ObservePaceDelay discards the metric.
func (m *NopMetrics) ObservePaceDelay(_ float64) {}
