// Package metric provides Prometheus metrics for blobtier.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry and HTTP handler
//
// Metrics include:
//
//   - Cache hit/miss counters per tier
//   - Disk operation latency histograms
//   - Error counters by kind
//   - Memory tier eviction and clear counters
//   - HTTP request counters and latencies
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
