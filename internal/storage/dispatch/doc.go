// Package dispatch runs keyed storage operations in the background.
//
// Every operation names the storage identifiers it touches. Run reserves a
// keylock ticket for them in the calling goroutine, which fixes the order
// of operations on each identifier, and then executes the work on a
// goroutine bounded by an I/O semaphore. Completion callbacks are handed to
// an Executor:
//
//   - Background: run on the worker goroutine
//   - Queue: collected and run by a single "primary" goroutine
//   - ExecutorFunc: any custom scheduling
//
// Exclusive runs a function with no operation in flight; the cache uses it
// to clear a namespace between the operations issued before and after.
//
// A worker waits for its ticket before it takes an I/O slot, so queued
// operations on a busy identifier never starve unrelated identifiers.
package dispatch
