package disk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/blobtier-go/internal/core/domain"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Dir is the database directory. Ignored when DB is set or InMemory.
	Dir string

	// Namespace prefixes every key, so several namespaces can share one
	// database.
	Namespace string

	// DB is an already opened database to share. The store does not close
	// a shared database.
	DB *badger.DB

	// InMemory runs badger without touching disk (tests).
	InMemory bool

	// GCInterval is the interval between value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the value log discard ratio that triggers a rewrite.
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// SyncWrites fsyncs every write.
	// Default: false
	SyncWrites bool

	// Registerer receives the size and GC metrics. Optional.
	Registerer prometheus.Registerer

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns the default badger configuration.
func DefaultBadgerConfig(dir, namespace string) BadgerConfig {
	return BadgerConfig{
		Dir:         dir,
		Namespace:   namespace,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		CacheSize:   64 << 20,
	}
}

// BadgerStore keeps payloads in an embedded badger database.
type BadgerStore struct {
	db     *badger.DB
	owned  bool
	prefix []byte
	cfg    BadgerConfig
	logger *slog.Logger

	stats *gcStats

	// release drops the store's reference to a database opened by Open.
	release func() error

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// gcStats records value log GC runs of one database.
type gcStats struct {
	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64
}

// NewBadgerStore opens (or attaches to) a badger database.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	return newBadgerStore(cfg, nil, nil)
}

// newBadgerStore builds a store. shared, when set, supplies the database
// and its GC state, and release is called on Close.
func newBadgerStore(cfg BadgerConfig, shared *sharedBadger, release func() error) (*BadgerStore, error) {
	if cfg.Namespace == "" {
		return nil, errors.New("disk: badger namespace is required")
	}
	if cfg.DB == nil && !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("disk: badger dir is required")
	}
	cfg = withBadgerDefaults(cfg)

	s := &BadgerStore{
		db:      cfg.DB,
		prefix:  []byte(cfg.Namespace + "/"),
		cfg:     cfg,
		logger:  cfg.Logger,
		stats:   &gcStats{},
		release: release,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	if shared != nil {
		s.db = shared.db
		s.stats = &shared.stats
	}

	if s.db == nil {
		db, err := openBadgerDB(cfg)
		if err != nil {
			return nil, err
		}
		s.db = db
		s.owned = true
	}

	if cfg.Registerer != nil {
		s.registerMetrics(cfg.Registerer)
	}

	if s.owned && !cfg.InMemory {
		go s.gcLoop()
	} else {
		close(s.doneCh)
	}

	s.logger.Info("badger backend started",
		"dir", cfg.Dir,
		"namespace", cfg.Namespace,
		"shared", !s.owned)

	return s, nil
}

func withBadgerDefaults(cfg BadgerConfig) BadgerConfig {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = 0.5
	}
	return cfg
}

func openBadgerDB(cfg BadgerConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: cfg.Logger}
	opts.SyncWrites = cfg.SyncWrites
	opts.DetectConflicts = false
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.ErrIO.WithDetails("open badger").WithCause(err)
	}
	return db, nil
}

// Root implements Backend.
func (s *BadgerStore) Root() string {
	dir := s.db.Opts().Dir
	if dir == "" {
		dir = "memory:"
	}
	return filepath.Join(dir, s.cfg.Namespace)
}

func (s *BadgerStore) key(id string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(id))
	k = append(k, s.prefix...)
	return append(k, id...)
}

// Read implements Backend.
func (s *BadgerStore) Read(_ context.Context, id string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(id))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, s.mapError("read", id, err)
	}
	return value, nil
}

// Write implements Backend.
func (s *BadgerStore) Write(_ context.Context, id string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(id), data)
	})
	if err != nil {
		return s.mapError("write", id, err)
	}
	return nil
}

// Copy implements Backend. The read and write share one transaction.
func (s *BadgerStore) Copy(_ context.Context, from, to string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(from))
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return txn.Set(s.key(to), value)
	})
	if err != nil {
		return s.mapError("copy", from, err)
	}
	return nil
}

// Delete implements Backend.
func (s *BadgerStore) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(s.key(id)); err != nil {
			return err
		}
		return txn.Delete(s.key(id))
	})
	if err != nil {
		return s.mapError("delete", id, err)
	}
	return nil
}

// Clear implements Backend.
func (s *BadgerStore) Clear(_ context.Context) error {
	if err := s.db.DropPrefix(s.prefix); err != nil {
		return s.mapError("clear", s.cfg.Namespace, err)
	}
	s.logger.Info("disk tier cleared", "namespace", s.cfg.Namespace)
	return nil
}

// List implements Backend.
func (s *BadgerStore) List(_ context.Context, prefix string) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.key(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			k := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(k, string(s.prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, s.mapError("list", prefix, err)
	}
	return ids, nil
}

// GC runs value log garbage collection until nothing is left to rewrite.
// Returns the number of rewritten value log files.
func (s *BadgerStore) GC() (int, error) {
	return runValueLogGC(s.db, s.cfg.GCThreshold, s.stats, s.logger)
}

func runValueLogGC(db *badger.DB, threshold float64, stats *gcStats, logger *slog.Logger) (int, error) {
	start := time.Now()
	rewrites := 0
	for {
		err := db.RunValueLogGC(threshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return rewrites, fmt.Errorf("gc: %w", err)
		}
		rewrites++
	}

	stats.lastGCTime.Store(time.Now().UnixMilli())
	stats.gcRuns.Add(1)

	logger.Debug("badger gc completed",
		"rewrites", rewrites,
		"elapsed", time.Since(start))

	return rewrites, nil
}

// Close implements Backend.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh

		switch {
		case s.owned:
			if cerr := s.db.Close(); cerr != nil {
				err = domain.ErrIO.WithDetails("close badger").WithCause(cerr)
			}
		case s.release != nil:
			err = s.release()
		}
	})
	return err
}

func (s *BadgerStore) mapError(op, id string, err error) error {
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return domain.ErrNotFound.WithDetails(fmt.Sprintf("%s %s", op, id))
	case errors.Is(err, badger.ErrDBClosed):
		return domain.ErrClosed.WithCause(err)
	default:
		return domain.ErrIO.WithDetails(fmt.Sprintf("%s %s", op, id)).WithCause(err)
	}
}

// registerMetrics exports database size and GC state. Gauges are labelled
// by namespace so several stores can share a registry.
func (s *BadgerStore) registerMetrics(reg prometheus.Registerer) {
	labels := prometheus.Labels{"namespace": s.cfg.Namespace}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "blobtier",
			Subsystem:   "badger",
			Name:        "lsm_size_bytes",
			Help:        "Badger LSM tree size in bytes",
			ConstLabels: labels,
		}, func() float64 {
			lsm, _ := s.db.Size()
			return float64(lsm)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "blobtier",
			Subsystem:   "badger",
			Name:        "value_log_size_bytes",
			Help:        "Badger value log size in bytes",
			ConstLabels: labels,
		}, func() float64 {
			_, vlog := s.db.Size()
			return float64(vlog)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "blobtier",
			Subsystem:   "badger",
			Name:        "last_gc_timestamp_seconds",
			Help:        "Unix timestamp of the last Badger GC run",
			ConstLabels: labels,
		}, func() float64 {
			return float64(s.stats.lastGCTime.Load()) / 1000.0
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "blobtier",
			Subsystem:   "badger",
			Name:        "gc_runs_total",
			Help:        "Completed Badger value log GC runs",
			ConstLabels: labels,
		}, func() float64 {
			return float64(s.stats.gcRuns.Load())
		}),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			s.logger.Warn("badger metric not registered", "error", err)
		}
	}
}

// gcLoop runs periodic garbage collection.
func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.GC(); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
