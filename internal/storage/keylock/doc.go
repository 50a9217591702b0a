// Package keylock provides per-identifier FIFO mutual exclusion.
//
// Callers reserve a Ticket for one or more identifiers without blocking.
// Reservation fixes the ticket's place in each identifier's queue, so
// operations issued from one goroutine run in issue order. Waiting and
// releasing are separate steps:
//
//	t := arena.Reserve(id)
//	defer t.Release()
//	if err := t.Wait(ctx); err != nil {
//		return err
//	}
//
// Multi-identifier reservations are serialized inside the arena, which
// gives every pair of tickets the same relative order on all identifiers
// they share. Waits therefore never form a cycle.
//
// Thread Safety:
//
// All operations are thread-safe. Queue state lives in a sharded cmap and
// is dropped when the last ticket on an identifier is released.
package keylock
