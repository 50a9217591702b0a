package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/blobtier-go/internal/core/domain"
	"github.com/yndnr/blobtier-go/internal/storage/disk"
	"github.com/yndnr/blobtier-go/internal/storage/dispatch"
	"github.com/yndnr/blobtier-go/internal/storage/keycodec"
	"github.com/yndnr/blobtier-go/internal/storage/memory"
	"github.com/yndnr/blobtier-go/internal/telemetry/logger"
	"github.com/yndnr/blobtier-go/internal/telemetry/metric"
)

// Coordinator is a two-tier cache for one namespace.
type Coordinator[V any] struct {
	namespace   string
	codec       Codec[V]
	transformer Transformer[V]
	quality     atomic.Int64
	completion  dispatch.Executor

	mem        *memory.Store[V]
	backend    disk.Backend
	dispatcher *dispatch.Dispatcher

	unsubscribe []func()
	metrics     *metric.Registry
	logger      *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// lookup is the result of a read.
type lookup[V any] struct {
	val   V
	found bool
}

// variantResult is the result of a variant request.
type variantResult[V any] struct {
	val       V
	fromCache bool
}

// New creates a coordinator. It does not touch the filesystem; the
// namespace directory is created on the first write.
func New[V any](cfg Config[V]) (*Coordinator[V], error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	backend := cfg.Backend
	if backend == nil {
		fs, err := disk.NewFileStore(disk.FileConfig{
			Root:   filepath.Join(cfg.BasePath, cfg.Namespace),
			Fs:     cfg.Fs,
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		backend = fs
	}

	mem, err := memory.New[V](cfg.Memory)
	if err != nil {
		return nil, err
	}

	c := &Coordinator[V]{
		namespace:   cfg.Namespace,
		codec:       cfg.Codec,
		transformer: cfg.Transformer,
		completion:  cfg.Completion,
		mem:         mem,
		backend:     backend,
		dispatcher: dispatch.New(dispatch.Config{
			Workers: cfg.Workers,
			Metrics: cfg.Metrics,
			Logger:  cfg.Logger,
		}),
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With("namespace", cfg.Namespace),
	}
	c.quality.Store(int64(cfg.Quality))

	for _, src := range cfg.Eviction {
		c.unsubscribe = append(c.unsubscribe, src.Subscribe(mem.OnEvictionSignal))
	}

	c.logger.Info("cache opened",
		"path", backend.Root(),
		"quality", cfg.Quality)

	return c, nil
}

// Namespace returns the namespace name.
func (c *Coordinator[V]) Namespace() string {
	return c.namespace
}

// StoragePath returns where the namespace's disk records live.
func (c *Coordinator[V]) StoragePath() string {
	return c.backend.Root()
}

// Quality returns the quality used for the next encode.
func (c *Coordinator[V]) Quality() int {
	return int(c.quality.Load())
}

// SetQuality changes the quality for subsequent encodes. Records already on
// disk are not re-encoded.
func (c *Coordinator[V]) SetQuality(q int) error {
	if err := ValidateQuality(q); err != nil {
		return err
	}
	if old := c.quality.Swap(int64(q)); old != int64(q) {
		c.logger.Info("quality changed", "old", old, "new", q)
	}
	return nil
}

// ============================================================================
// Set
// ============================================================================

// Set stores v under key on disk and, when memoryAlso is true, in memory.
// When memoryAlso is false any cached value for key is dropped.
func (c *Coordinator[V]) Set(ctx context.Context, key string, v V, memoryAlso bool) error {
	id := keycodec.Identifier(key)
	_, err := dispatch.Wait(ctx, c.dispatcher, []string{id}, c.setWork(ctx, key, id, v, memoryAlso))
	return err
}

// SetAsync is the asynchronous form of Set.
func (c *Coordinator[V]) SetAsync(ctx context.Context, key string, v V, memoryAlso bool, done func(error), opts ...CallOption) {
	id := keycodec.Identifier(key)
	dispatch.Run(c.dispatcher, []string{id}, c.setWork(ctx, key, id, v, memoryAlso), c.resolve(opts), errOnly(done))
}

func (c *Coordinator[V]) setWork(ctx context.Context, key, id string, v V, memoryAlso bool) func() (struct{}, error) {
	ctx = context.WithoutCancel(ctx)
	return func() (struct{}, error) {
		data, err := c.encode(v)
		if err != nil {
			return struct{}{}, c.fail(ctx, "set", key, err)
		}
		if err := c.write(ctx, id, data); err != nil {
			return struct{}{}, c.fail(ctx, "set", key, err)
		}
		if memoryAlso {
			c.mem.Put(id, v, c.cost(v, data))
		} else {
			c.mem.Remove(id)
		}
		return struct{}{}, nil
	}
}

// ============================================================================
// Get
// ============================================================================

// Get returns the value stored under key. A key stored in neither tier is
// reported as found == false with a nil error.
func (c *Coordinator[V]) Get(ctx context.Context, key string) (V, bool, error) {
	id := keycodec.Identifier(key)
	r, err := dispatch.Wait(ctx, c.dispatcher, []string{id}, c.getWork(ctx, key, id))
	return r.val, r.found, err
}

// GetAsync is the asynchronous form of Get.
func (c *Coordinator[V]) GetAsync(ctx context.Context, key string, done func(V, bool, error), opts ...CallOption) {
	id := keycodec.Identifier(key)
	dispatch.Run(c.dispatcher, []string{id}, c.getWork(ctx, key, id), c.resolve(opts), func(r lookup[V], err error) {
		if done != nil {
			done(r.val, r.found, err)
		}
	})
}

// GetFromMemory returns the value for key if it is in the memory tier. It
// never reads disk and never waits for other operations.
func (c *Coordinator[V]) GetFromMemory(key string) (V, bool) {
	v, ok := c.mem.Get(keycodec.Identifier(key))
	if ok {
		c.metrics.IncCacheHit(metric.TierMemory)
	}
	return v, ok
}

// GetRecord returns the stored encoding of key as it is on disk, without
// decoding it or touching the memory tier. It orders with other operations
// on key like Get.
func (c *Coordinator[V]) GetRecord(ctx context.Context, key string) ([]byte, bool, error) {
	id := keycodec.Identifier(key)
	wctx := context.WithoutCancel(ctx)
	r, err := dispatch.Wait(ctx, c.dispatcher, []string{id}, func() (lookup[[]byte], error) {
		data, err := c.read(wctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			c.metrics.IncCacheMiss()
			return lookup[[]byte]{}, nil
		}
		if err != nil {
			return lookup[[]byte]{}, c.fail(wctx, "get", key, err)
		}
		c.metrics.IncCacheHit(metric.TierDisk)
		return lookup[[]byte]{val: data, found: true}, nil
	})
	return r.val, r.found, err
}

func (c *Coordinator[V]) getWork(ctx context.Context, key, id string) func() (lookup[V], error) {
	ctx = context.WithoutCancel(ctx)
	return func() (lookup[V], error) {
		v, found, err := c.load(ctx, id)
		if err != nil {
			return lookup[V]{}, c.fail(ctx, "get", key, err)
		}
		if !found {
			c.metrics.IncCacheMiss()
		}
		return lookup[V]{val: v, found: found}, nil
	}
}

// load reads id from memory, then disk, populating memory on a disk hit.
// Callers hold the ticket for id.
func (c *Coordinator[V]) load(ctx context.Context, id string) (V, bool, error) {
	var zero V

	if v, ok := c.mem.Get(id); ok {
		c.metrics.IncCacheHit(metric.TierMemory)
		return v, true, nil
	}

	data, err := c.read(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}

	v, err := c.codec.Decode(data)
	if err != nil {
		return zero, false, domain.ErrDecode.WithDetails(id).WithCause(err)
	}
	c.mem.Put(id, v, c.cost(v, data))
	c.metrics.IncCacheHit(metric.TierDisk)

	return v, true, nil
}

// ============================================================================
// Copy
// ============================================================================

// Copy duplicates the record of from under to. The copy is independent of
// its source. When memoryAlso is true and from is cached in memory, the
// cached value is duplicated too; otherwise to is dropped from memory.
// Returns domain.ErrNotFound if from has no disk record.
func (c *Coordinator[V]) Copy(ctx context.Context, from, to string, memoryAlso bool) error {
	fromID, toID := keycodec.Identifier(from), keycodec.Identifier(to)
	_, err := dispatch.Wait(ctx, c.dispatcher, []string{fromID, toID}, c.copyWork(ctx, from, fromID, toID, memoryAlso))
	return err
}

// CopyAsync is the asynchronous form of Copy.
func (c *Coordinator[V]) CopyAsync(ctx context.Context, from, to string, memoryAlso bool, done func(error), opts ...CallOption) {
	fromID, toID := keycodec.Identifier(from), keycodec.Identifier(to)
	dispatch.Run(c.dispatcher, []string{fromID, toID}, c.copyWork(ctx, from, fromID, toID, memoryAlso), c.resolve(opts), errOnly(done))
}

func (c *Coordinator[V]) copyWork(ctx context.Context, from, fromID, toID string, memoryAlso bool) func() (struct{}, error) {
	ctx = context.WithoutCancel(ctx)
	return func() (struct{}, error) {
		start := time.Now()
		err := c.backend.Copy(ctx, fromID, toID)
		c.metrics.ObserveDiskOp("copy", start)
		if err != nil {
			return struct{}{}, c.fail(ctx, "copy", from, err)
		}

		if fromID == toID {
			return struct{}{}, nil
		}
		c.mem.Remove(toID)
		if memoryAlso {
			if v, cost, ok := c.mem.Lookup(fromID); ok {
				c.mem.Put(toID, v, cost)
			}
		}
		return struct{}{}, nil
	}
}

// ============================================================================
// Variants
// ============================================================================

// ScaledVariant returns variant of the value stored under key. A variant
// already cached in either tier is returned with fromCache == true.
// Otherwise the original is loaded and transformed, and the result is
// stored in both tiers. Concurrent requests for the same variant run the
// transform once. Returns domain.ErrNotFound if key is not stored.
func (c *Coordinator[V]) ScaledVariant(ctx context.Context, key string, variant keycodec.Variant) (V, bool, error) {
	ids, work := c.variantWork(ctx, key, variant)
	r, err := dispatch.Wait(ctx, c.dispatcher, ids, work)
	return r.val, r.fromCache, err
}

// ScaledVariantAsync is the asynchronous form of ScaledVariant.
func (c *Coordinator[V]) ScaledVariantAsync(ctx context.Context, key string, variant keycodec.Variant, done func(V, bool, error), opts ...CallOption) {
	ids, work := c.variantWork(ctx, key, variant)
	dispatch.Run(c.dispatcher, ids, work, c.resolve(opts), func(r variantResult[V], err error) {
		if done != nil {
			done(r.val, r.fromCache, err)
		}
	})
}

func (c *Coordinator[V]) variantWork(ctx context.Context, key string, variant keycodec.Variant) ([]string, func() (variantResult[V], error)) {
	ctx = context.WithoutCancel(ctx)
	id := keycodec.Identifier(key)
	did := keycodec.Derived(key, variant)

	// The original's ticket is held too, so the source cannot change
	// between load and store.
	return []string{did, id}, func() (variantResult[V], error) {
		if c.transformer == nil {
			return variantResult[V]{}, domain.ErrInvalidArgument.WithCause(errNoTransformer)
		}

		v, found, err := c.load(ctx, did)
		if err != nil {
			return variantResult[V]{}, c.fail(ctx, "variant", key, err)
		}
		if found {
			return variantResult[V]{val: v, fromCache: true}, nil
		}

		orig, found, err := c.load(ctx, id)
		if err != nil {
			return variantResult[V]{}, c.fail(ctx, "variant", key, err)
		}
		if !found {
			c.metrics.IncCacheMiss()
			return variantResult[V]{}, domain.ErrNotFound.WithDetails(fmt.Sprintf("original of %s", variant.VariantKey()))
		}

		out, err := c.transformer.Transform(ctx, orig, variant)
		if err != nil {
			return variantResult[V]{}, c.fail(ctx, "variant", key, domain.ErrTransform.WithDetails(variant.VariantKey()).WithCause(err))
		}
		c.metrics.IncTransform()

		data, err := c.encode(out)
		if err != nil {
			return variantResult[V]{}, c.fail(ctx, "variant", key, err)
		}
		if err := c.write(ctx, did, data); err != nil {
			return variantResult[V]{}, c.fail(ctx, "variant", key, err)
		}
		c.mem.Put(did, out, c.cost(out, data))

		return variantResult[V]{val: out, fromCache: false}, nil
	}
}

// RemoveVariant drops one cached variant of key from both tiers.
// Returns domain.ErrNotFound if the variant had no disk record.
func (c *Coordinator[V]) RemoveVariant(ctx context.Context, key string, variant keycodec.Variant) error {
	did := keycodec.Derived(key, variant)
	_, err := dispatch.Wait(ctx, c.dispatcher, []string{did}, c.removeWork(ctx, key, did))
	return err
}

// PurgeVariants drops every cached variant of key from both tiers and
// returns how many disk records were removed. The original is kept.
func (c *Coordinator[V]) PurgeVariants(ctx context.Context, key string) (int, error) {
	id := keycodec.Identifier(key)
	wctx := context.WithoutCancel(ctx)

	// Variant computations hold the original's ticket, so holding it here
	// excludes them for the duration of the purge.
	return dispatch.Wait(ctx, c.dispatcher, []string{id}, func() (int, error) {
		ids, err := c.backend.List(wctx, keycodec.VariantPrefix(key))
		if err != nil {
			return 0, c.fail(wctx, "purge", key, err)
		}

		removed := 0
		for _, did := range ids {
			c.mem.Remove(did)
			err := c.backend.Delete(wctx, did)
			switch {
			case err == nil:
				removed++
			case errors.Is(err, domain.ErrNotFound):
			default:
				return removed, c.fail(wctx, "purge", key, err)
			}
		}
		return removed, nil
	})
}

// ============================================================================
// Remove / Clear
// ============================================================================

// Remove drops key from both tiers. Variants of key are kept.
// Returns domain.ErrNotFound if key had no disk record.
func (c *Coordinator[V]) Remove(ctx context.Context, key string) error {
	id := keycodec.Identifier(key)
	_, err := dispatch.Wait(ctx, c.dispatcher, []string{id}, c.removeWork(ctx, key, id))
	return err
}

// RemoveAsync is the asynchronous form of Remove.
func (c *Coordinator[V]) RemoveAsync(ctx context.Context, key string, done func(error), opts ...CallOption) {
	id := keycodec.Identifier(key)
	dispatch.Run(c.dispatcher, []string{id}, c.removeWork(ctx, key, id), c.resolve(opts), errOnly(done))
}

func (c *Coordinator[V]) removeWork(ctx context.Context, key, id string) func() (struct{}, error) {
	ctx = context.WithoutCancel(ctx)
	return func() (struct{}, error) {
		c.mem.Remove(id)

		start := time.Now()
		err := c.backend.Delete(ctx, id)
		c.metrics.ObserveDiskOp("delete", start)
		if err != nil {
			return struct{}{}, c.fail(ctx, "remove", key, err)
		}
		return struct{}{}, nil
	}
}

// ClearMemory empties this namespace's memory tier. Disk is untouched.
func (c *Coordinator[V]) ClearMemory() {
	c.mem.Clear()
	c.metrics.IncMemoryClear("manual")
	c.logger.Info("memory tier cleared")
}

// Clear empties both tiers. It waits for every operation issued before it
// and holds back operations issued while it runs. The memory tier is
// cleared even when clearing disk fails; the disk error is returned.
func (c *Coordinator[V]) Clear(ctx context.Context) error {
	return c.dispatcher.Exclusive(func() error {
		start := time.Now()
		err := c.backend.Clear(ctx)
		c.metrics.ObserveDiskOp("clear", start)

		c.mem.Clear()
		c.metrics.IncMemoryClear("clear")

		if err != nil {
			return c.fail(ctx, "clear", "", err)
		}
		c.logger.Info("namespace cleared")
		return nil
	})
}

// Close waits for in-flight operations and releases both tiers. Later
// operations fail with domain.ErrClosed.
func (c *Coordinator[V]) Close() error {
	c.closeOnce.Do(func() {
		for _, cancel := range c.unsubscribe {
			cancel()
		}
		c.dispatcher.Close()
		c.mem.Close()
		c.closeErr = c.backend.Close()
		c.logger.Info("cache closed")
	})
	return c.closeErr
}

// ============================================================================
// Helpers
// ============================================================================

func (c *Coordinator[V]) encode(v V) ([]byte, error) {
	data, err := c.codec.Encode(v, c.Quality())
	if err != nil {
		return nil, domain.ErrEncode.WithCause(err)
	}
	return data, nil
}

// cost is the memory tier charge for v, whose encoded form is data.
func (c *Coordinator[V]) cost(v V, data []byte) int64 {
	if coster, ok := c.codec.(Coster[V]); ok {
		return coster.Cost(v)
	}
	return int64(len(data))
}

func (c *Coordinator[V]) read(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	defer c.metrics.ObserveDiskOp("read", start)
	return c.backend.Read(ctx, id)
}

func (c *Coordinator[V]) write(ctx context.Context, id string, data []byte) error {
	start := time.Now()
	defer c.metrics.ObserveDiskOp("write", start)
	return c.backend.Write(ctx, id, data)
}

// fail records and logs a failed operation and returns err unchanged.
// Absent keys are an expected outcome and are logged at debug level.
func (c *Coordinator[V]) fail(ctx context.Context, op, key string, err error) error {
	kind := domain.Kind(err)
	c.metrics.RecordError(kind)

	attrs := []any{"op", op, "kind", kind, "error", err}
	if key != "" {
		attrs = append(attrs, logger.KeyAttr(key))
	}
	if kind == "not_found" {
		c.logger.DebugContext(ctx, "cache operation failed", attrs...)
	} else {
		c.logger.WarnContext(ctx, "cache operation failed", attrs...)
	}
	return err
}

func errOnly(done func(error)) func(struct{}, error) {
	if done == nil {
		return nil
	}
	return func(_ struct{}, err error) {
		done(err)
	}
}
