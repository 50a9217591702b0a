// Package storage provides the two-tier blob cache coordinator.
//
// A Coordinator fronts a durable disk tier with a bounded memory tier for
// one namespace. It combines:
//
//   - keycodec: caller keys to filesystem-safe identifiers
//   - memory: a cost-aware ristretto tier of decoded values
//   - disk: a file or badger backend of encoded payloads
//   - dispatch: per-identifier FIFO execution off the caller's goroutine
//
// Every operation has a blocking form and an asynchronous form that
// delivers its result on a configurable dispatch.Executor. Operations on
// one key apply in the order they were issued, whatever their form;
// operations on different keys run in parallel.
//
// Derived variants (thumbnails) are cached under identifiers derived from
// the original key. A variant is computed at most once at a time, and
// removing a key does not remove its variants; see PurgeVariants.
package storage
