package keylock

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/yndnr/blobtier-go/pkg/cmap"
)

// queue is the per-identifier state. tail is closed once the most recently
// reserved ticket is released; refs counts unreleased tickets.
type queue struct {
	tail chan struct{}
	refs int
}

// Arena hands out tickets keyed by storage identifier.
type Arena struct {
	queues *cmap.Map[string, *queue]

	// multi serializes reservations spanning more than one identifier.
	multi sync.Mutex
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		queues: cmap.NewWithShards[string, *queue](64),
	}
}

// Ticket is a place in the queue of one or more identifiers.
type Ticket struct {
	arena *Arena
	ids   []string
	prev  []chan struct{}
	own   chan struct{}

	waited   atomic.Bool
	released atomic.Bool
}

// Reserve takes a place behind every earlier ticket on ids. It never
// blocks on other tickets. Duplicate ids are collapsed.
func (a *Arena) Reserve(ids ...string) *Ticket {
	t := &Ticket{
		arena: a,
		ids:   normalize(ids),
		own:   make(chan struct{}),
	}

	if len(t.ids) > 1 {
		a.multi.Lock()
		defer a.multi.Unlock()
	}

	for _, id := range t.ids {
		a.queues.Compute(id, func(q *queue, ok bool) (*queue, bool) {
			if !ok {
				q = &queue{}
			}
			if q.tail != nil {
				t.prev = append(t.prev, q.tail)
			}
			q.tail = t.own
			q.refs++
			return q, true
		})
	}
	return t
}

// WithLock runs fn while holding id exclusively.
func (a *Arena) WithLock(ctx context.Context, id string, fn func() error) error {
	t := a.Reserve(id)
	defer t.Release()
	if err := t.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

// Len returns the number of identifiers with outstanding tickets.
func (a *Arena) Len() int {
	return a.queues.Count()
}

// IDs returns the identifiers the ticket covers, sorted.
func (t *Ticket) IDs() []string {
	return t.ids
}

// Wait blocks until every earlier ticket on the ticket's identifiers has
// been released, or ctx is done. A ticket whose wait was cancelled still
// holds its place and must be released.
func (t *Ticket) Wait(ctx context.Context) error {
	for _, ch := range t.prev {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.waited.Store(true)
	return nil
}

// Release gives up the ticket. Release is idempotent.
//
// A ticket released before its wait completed hands over only after the
// tickets ahead of it finish, so later tickets never overtake them.
func (t *Ticket) Release() {
	if !t.released.CompareAndSwap(false, true) {
		return
	}
	if t.waited.Load() {
		t.finish()
		return
	}
	go func() {
		for _, ch := range t.prev {
			<-ch
		}
		t.finish()
	}()
}

func (t *Ticket) finish() {
	close(t.own)
	for _, id := range t.ids {
		t.arena.queues.Compute(id, func(q *queue, ok bool) (*queue, bool) {
			if !ok {
				return q, false
			}
			q.refs--
			return q, q.refs > 0
		})
	}
}

func normalize(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
