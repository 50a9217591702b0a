// Package disk provides the durable tier of the blob cache.
//
// A Backend stores opaque byte payloads under storage identifiers inside
// one namespace. Two implementations are provided:
//
//   - FileStore: one file per identifier under <base>/<namespace>, on an
//     afero filesystem. Writes and copies go through a temporary file and
//     a rename, so readers never observe a partial payload.
//   - BadgerStore: an embedded badger database with keys prefixed by the
//     namespace, for deployments with many small blobs.
//
// Errors are domain errors: domain.ErrNotFound for an absent record and
// domain.ErrIO wrapping the underlying failure otherwise.
package disk
