// Package metric provides Prometheus metrics for blobtier.
package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blobtier"

// Tier labels for cache hits.
const (
	TierMemory = "memory"
	TierDisk   = "disk"
)

// Registry holds all application metrics.
//
// All methods are safe on a nil *Registry, which records nothing.
type Registry struct {
	registry *prometheus.Registry

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses prometheus.Counter
	Transforms  prometheus.Counter
	Errors      *prometheus.CounterVec

	// Disk metrics
	DiskOpDuration *prometheus.HistogramVec

	// Memory tier metrics
	MemoryEvictions prometheus.Counter
	MemoryClears    *prometheus.CounterVec

	// Dispatcher metrics
	Inflight prometheus.Gauge

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

var (
	globalRegistry *Registry
	globalOnce     sync.Once
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// NewRegistry creates a new metrics registry with Go runtime and process
// collectors already registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by tier",
		}, []string{"tier"}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Lookups that found the key in neither tier",
		}),
		Transforms: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transforms_total",
			Help:      "Variant transforms executed",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Failed cache operations by error kind",
		}, []string{"kind"}),
		DiskOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "disk_op_duration_seconds",
			Help:      "Disk tier operation latency",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"op"}),
		MemoryEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_evictions_total",
			Help:      "Entries evicted from the memory tier by the capacity policy",
		}),
		MemoryClears: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_clears_total",
			Help:      "Whole memory tier clears by reason",
		}, []string{"reason"}),
		Inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_operations",
			Help:      "Dispatched operations not yet completed",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		r.CacheHits,
		r.CacheMisses,
		r.Transforms,
		r.Errors,
		r.DiskOpDuration,
		r.MemoryEvictions,
		r.MemoryClears,
		r.Inflight,
		r.RequestsTotal,
		r.RequestDuration,
	)

	return r
}

// Registerer exposes the underlying registry so components such as the
// badger backend can add their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// IncCacheHit records a hit in the given tier.
func (r *Registry) IncCacheHit(tier string) {
	if r == nil {
		return
	}
	r.CacheHits.WithLabelValues(tier).Inc()
}

// IncCacheMiss records a lookup that missed both tiers.
func (r *Registry) IncCacheMiss() {
	if r == nil {
		return
	}
	r.CacheMisses.Inc()
}

// IncTransform records one variant transform.
func (r *Registry) IncTransform() {
	if r == nil {
		return
	}
	r.Transforms.Inc()
}

// RecordError counts a failed operation.
func (r *Registry) RecordError(kind string) {
	if r == nil || kind == "" {
		return
	}
	r.Errors.WithLabelValues(kind).Inc()
}

// ObserveDiskOp records the latency of a disk tier operation started at start.
func (r *Registry) ObserveDiskOp(op string, start time.Time) {
	if r == nil {
		return
	}
	r.DiskOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// IncMemoryEviction records one capacity eviction.
func (r *Registry) IncMemoryEviction() {
	if r == nil {
		return
	}
	r.MemoryEvictions.Inc()
}

// IncMemoryClear records a whole memory tier clear.
func (r *Registry) IncMemoryClear(reason string) {
	if r == nil {
		return
	}
	r.MemoryClears.WithLabelValues(reason).Inc()
}

// AddInflight adjusts the in-flight operation gauge.
func (r *Registry) AddInflight(delta float64) {
	if r == nil {
		return
	}
	r.Inflight.Add(delta)
}

// RecordRequest counts one HTTP request. route is the matched mux
// pattern, never the raw path, so cache keys stay out of label values.
func (r *Registry) RecordRequest(route, status string) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(route, status).Inc()
}

// ObserveRequestDuration records HTTP request latency in seconds.
func (r *Registry) ObserveRequestDuration(route string, seconds float64) {
	if r == nil {
		return
	}
	r.RequestDuration.WithLabelValues(route).Observe(seconds)
}
