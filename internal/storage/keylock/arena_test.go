package keylock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitOrFail(t *testing.T, tk *Ticket) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tk.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestReserve_FIFO(t *testing.T) {
	a := NewArena()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	// Reserve in issue order, then run concurrently.
	tickets := make([]*Ticket, 20)
	for i := range tickets {
		tickets[i] = a.Reserve("id")
	}
	// Start waiters last-first so scheduling order cannot explain the result.
	for i := len(tickets) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int, tk *Ticket) {
			defer wg.Done()
			defer tk.Release()
			if err := tk.Wait(context.Background()); err != nil {
				t.Errorf("Wait() error = %v", err)
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}(i, tickets[i])
	}
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestReserve_MutualExclusion(t *testing.T) {
	a := NewArena()
	var active, maxActive atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.WithLock(context.Background(), "shared", func() error {
				n := active.Add(1)
				for {
					m := maxActive.Load()
					if n <= m || maxActive.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(100 * time.Microsecond)
				active.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("WithLock() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if maxActive.Load() != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxActive.Load())
	}
}

func TestReserve_DistinctIDsDoNotBlock(t *testing.T) {
	a := NewArena()

	first := a.Reserve("a")
	defer first.Release()
	waitOrFail(t, first)

	other := a.Reserve("b")
	defer other.Release()
	waitOrFail(t, other)
}

func TestReserve_Dedupe(t *testing.T) {
	a := NewArena()

	tk := a.Reserve("b", "a", "b", "a")
	if ids := tk.IDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("IDs() = %v, want [a b]", ids)
	}
	// A ticket must not wait on itself.
	waitOrFail(t, tk)
	tk.Release()
}

func TestReserve_MultiKeyNoDeadlock(t *testing.T) {
	a := NewArena()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var tk *Ticket
			if i%2 == 0 {
				tk = a.Reserve("x", "y")
			} else {
				tk = a.Reserve("y", "x")
			}
			defer tk.Release()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tk.Wait(ctx); err != nil {
				t.Errorf("Wait() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func TestWait_Cancelled(t *testing.T) {
	a := NewArena()

	holder := a.Reserve("id")
	waitOrFail(t, holder)

	blocked := a.Reserve("id")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := blocked.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}

	// The cancelled ticket keeps its place: a third ticket must not run
	// until both earlier tickets are released.
	third := a.Reserve("id")
	blocked.Release()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if err := third.Wait(ctx2); err == nil {
		t.Fatal("third ticket ran while the holder was still active")
	}

	holder.Release()
	waitOrFail(t, third)
	third.Release()
}

func TestRelease_Idempotent(t *testing.T) {
	a := NewArena()

	tk := a.Reserve("id")
	waitOrFail(t, tk)
	tk.Release()
	tk.Release()

	next := a.Reserve("id")
	waitOrFail(t, next)
	next.Release()
}

func TestArena_DropsIdleQueues(t *testing.T) {
	a := NewArena()

	for i := 0; i < 10; i++ {
		tk := a.Reserve("a", "b")
		waitOrFail(t, tk)
		tk.Release()
	}
	if n := a.Len(); n != 0 {
		t.Errorf("Len() = %d after all releases, want 0", n)
	}

	held := a.Reserve("c")
	if n := a.Len(); n != 1 {
		t.Errorf("Len() = %d with one held ticket, want 1", n)
	}
	held.Release()

	// Release without Wait hands over asynchronously once earlier tickets
	// finish; with nothing ahead it completes promptly.
	deadline := time.Now().Add(time.Second)
	for a.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n := a.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}
