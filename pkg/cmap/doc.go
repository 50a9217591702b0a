// Package cmap provides a concurrent map implementation for blobtier.
//
// This package implements a sharded concurrent map with the following
// features:
//
//   - Sharding: Configurable shard count for parallelism
//   - Stable Placement: murmur3 selects the shard, so a key always lands
//     in the same shard across processes
//   - Fine-grained Locking: Per-shard RWMutex for minimal contention
//   - Atomic Compute: read-modify-write (or delete) under the shard lock
//
// Usage:
//
//	m := cmap.New[string, *entry]()
//	m.Compute("key", func(e *entry, ok bool) (*entry, bool) { ... })
//
// Thread Safety:
//
// All operations are thread-safe. Read operations (Get, Has) use RLock,
// write operations (Set, Delete, Compute) use Lock.
package cmap
