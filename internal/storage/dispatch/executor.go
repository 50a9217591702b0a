package dispatch

import (
	"context"
	"sync"
)

// Executor schedules completion callbacks.
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(fn func())

// Execute implements Executor.
func (f ExecutorFunc) Execute(fn func()) {
	f(fn)
}

// Background runs callbacks directly on the goroutine that completed the
// operation.
var Background Executor = ExecutorFunc(func(fn func()) { fn() })

// Queue is a FIFO executor drained by one goroutine. It plays the role of
// an application's main loop: callbacks delivered to a Queue never run
// concurrently with each other.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	notify  chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

// Execute implements Executor. It never blocks.
func (q *Queue) Execute(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Drain runs every queued callback on the calling goroutine and returns
// how many ran.
func (q *Queue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return n
		}
		batch := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Len returns the number of callbacks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Run drains the queue as callbacks arrive until ctx is done. Callbacks
// still queued when ctx ends are run before Run returns.
func (q *Queue) Run(ctx context.Context) error {
	for {
		q.Drain()
		select {
		case <-q.notify:
		case <-ctx.Done():
			q.Drain()
			return ctx.Err()
		}
	}
}

// Start runs the queue on a new goroutine. The returned function stops it
// and waits for the goroutine to exit.
func (q *Queue) Start() (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
