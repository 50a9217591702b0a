package memory

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"

	"github.com/yndnr/blobtier-go/internal/telemetry/metric"
)

// Default configuration values.
const (
	DefaultMaxCost     = 256 << 20 // 256MB
	DefaultNumCounters = 100_000
	DefaultBufferItems = 64
)

// Config configures the memory tier.
type Config struct {
	// MaxCost is the byte budget for cached values.
	// Default: 256MB
	MaxCost int64

	// NumCounters is the number of admission frequency counters; roughly
	// ten times the expected number of entries.
	// Default: 100000
	NumCounters int64

	// Metrics is optional.
	Metrics *metric.Registry

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultConfig returns the default memory tier configuration.
func DefaultConfig() Config {
	return Config{
		MaxCost:     DefaultMaxCost,
		NumCounters: DefaultNumCounters,
		Logger:      slog.Default(),
	}
}

type entry[V any] struct {
	value V
	cost  int64
}

// Store is a bounded in-memory map from identifier to decoded value.
type Store[V any] struct {
	cache   *ristretto.Cache
	metrics *metric.Registry
	logger  *slog.Logger

	// clears counts whole-tier clears; it lets tests and callers observe
	// eviction signals.
	clears atomic.Uint64
}

// New creates a memory store.
func New[V any](cfg Config) (*Store[V], error) {
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = DefaultMaxCost
	}
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = DefaultNumCounters
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Store[V]{
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        cfg.NumCounters,
		MaxCost:            cfg.MaxCost,
		BufferItems:        DefaultBufferItems,
		IgnoreInternalCost: true,
		OnEvict: func(*ristretto.Item) {
			s.metrics.IncMemoryEviction()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("memory: create cache: %w", err)
	}
	s.cache = cache

	return s, nil
}

// Get returns the value cached under id.
func (s *Store[V]) Get(id string) (V, bool) {
	v, _, ok := s.Lookup(id)
	return v, ok
}

// Lookup returns the value cached under id together with its cost.
func (s *Store[V]) Lookup(id string) (V, int64, bool) {
	raw, ok := s.cache.Get(id)
	if !ok {
		var zero V
		return zero, 0, false
	}
	e, ok := raw.(entry[V])
	if !ok {
		var zero V
		return zero, 0, false
	}
	return e.value, e.cost, true
}

// Put caches v under id with the given cost in bytes. It reports whether
// the entry was admitted; a rejected entry is simply not cached. A
// successful Put is visible to the next Get.
func (s *Store[V]) Put(id string, v V, cost int64) bool {
	if cost <= 0 {
		cost = 1
	}
	ok := s.cache.Set(id, entry[V]{value: v, cost: cost}, cost)
	s.cache.Wait()
	if !ok {
		s.logger.Debug("memory tier rejected entry", "id", id, "cost", cost)
	}
	return ok
}

// Remove drops id from the store.
func (s *Store[V]) Remove(id string) {
	s.cache.Del(id)
}

// Clear drops every entry.
func (s *Store[V]) Clear() {
	s.cache.Clear()
	s.clears.Add(1)
}

// Clears returns how many times the store has been cleared.
func (s *Store[V]) Clears() uint64 {
	return s.clears.Load()
}

// OnEvictionSignal handles memory pressure by discarding every entry.
func (s *Store[V]) OnEvictionSignal() {
	s.Clear()
	s.metrics.IncMemoryClear("signal")
	s.logger.Info("memory tier cleared on eviction signal")
}

// Close stops the cache's background goroutines.
func (s *Store[V]) Close() {
	s.cache.Close()
}
