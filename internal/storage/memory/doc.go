// Package memory provides the volatile tier of the blob cache.
//
// Store holds decoded values keyed by storage identifier in a ristretto
// cache. Each entry costs its encoded byte length, so MaxCost is a byte
// budget and the admission/eviction policy is ristretto's TinyLFU.
//
// Features:
//
//   - Cost-aware Eviction: entries are dropped when the byte budget is exceeded
//   - Read-your-writes: Put waits for ristretto's buffers to drain
//   - Eviction Signals: external sources (OS signals, manual triggers) clear
//     the whole tier
//
// Thread Safety:
//
// All operations are thread-safe.
package memory
