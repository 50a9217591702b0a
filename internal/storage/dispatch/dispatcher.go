package dispatch

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/semaphore"

	"github.com/yndnr/blobtier-go/internal/core/domain"
	"github.com/yndnr/blobtier-go/internal/storage/keylock"
	"github.com/yndnr/blobtier-go/internal/telemetry/metric"
)

// Config configures a Dispatcher.
type Config struct {
	// Workers bounds the number of operations executing at once.
	// Default: runtime.NumCPU(), at least 4
	Workers int

	// Arena orders operations per identifier. A private arena is created
	// when nil.
	Arena *keylock.Arena

	// Metrics is optional.
	Metrics *metric.Registry

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DefaultWorkers returns the default I/O concurrency.
func DefaultWorkers() int {
	return max(runtime.NumCPU(), 4)
}

// Dispatcher executes keyed operations off the caller's goroutine.
type Dispatcher struct {
	arena   *keylock.Arena
	slots   *semaphore.Weighted
	wg      conc.WaitGroup
	metrics *metric.Registry
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool

	// gate is held shared from issue to completion of every operation and
	// exclusively by Exclusive.
	gate sync.RWMutex
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	if cfg.Arena == nil {
		cfg.Arena = keylock.NewArena()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Dispatcher{
		arena:   cfg.Arena,
		slots:   semaphore.NewWeighted(int64(cfg.Workers)),
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// Arena returns the lock arena operations are ordered by.
func (d *Dispatcher) Arena() *keylock.Arena {
	return d.arena
}

// Run schedules work under exclusive access to ids and delivers its result
// to done on exec. The place in each identifier's queue is taken before Run
// returns. A panic in work is reported as domain.ErrInternal. done may be
// nil. After Close, done receives domain.ErrClosed.
func Run[T any](d *Dispatcher, ids []string, work func() (T, error), exec Executor, done func(T, error)) {
	if exec == nil {
		exec = Background
	}
	deliver := func(v T, err error) {
		if done != nil {
			exec.Execute(func() { done(v, err) })
		}
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		var zero T
		deliver(zero, domain.ErrClosed)
		return
	}
	defer d.mu.RUnlock()

	d.gate.RLock()
	ticket := d.arena.Reserve(ids...)
	d.metrics.AddInflight(1)

	d.wg.Go(func() {
		// Tickets are never cancelled here; Wait cannot fail.
		_ = ticket.Wait(context.Background())
		_ = d.slots.Acquire(context.Background(), 1)

		var (
			val T
			err error
		)
		if r := panics.Try(func() { val, err = work() }); r != nil {
			d.logger.Error("storage operation panicked",
				"ids", ticket.IDs(),
				"panic", r.Value,
				"stack", string(r.Stack))
			var zero T
			val, err = zero, domain.ErrInternal.WithCause(r.AsError())
		}

		d.slots.Release(1)
		ticket.Release()
		d.gate.RUnlock()
		d.metrics.AddInflight(-1)

		deliver(val, err)
	})
}

type result[T any] struct {
	val T
	err error
}

// Wait runs work like Run and blocks until it completes or ctx is done.
// Cancelling ctx abandons the wait only; the operation still runs.
func Wait[T any](ctx context.Context, d *Dispatcher, ids []string, work func() (T, error)) (T, error) {
	ch := make(chan result[T], 1)
	Run(d, ids, work, Background, func(v T, err error) {
		ch <- result[T]{val: v, err: err}
	})

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Exclusive runs fn once every operation issued before it has completed,
// and holds back operations issued meanwhile until fn returns. Run blocks
// its caller while an Exclusive call is pending. fn must not wait on
// operations of this dispatcher.
func (d *Dispatcher) Exclusive(fn func() error) error {
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return domain.ErrClosed
	}

	d.gate.Lock()
	defer d.gate.Unlock()
	return fn()
}

// Close rejects new operations with domain.ErrClosed and waits for
// scheduled ones to finish. Close is idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}
