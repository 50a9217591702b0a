// Package main provides the entry point for blobtier-server.
//
// The server exposes one cache namespace over HTTP:
//
//   - Blob API: store, fetch, copy and remove blobs, and fetch scaled
//     variants computed on demand
//   - Admin API: status, quality and cache clearing
//   - Prometheus metrics at /metrics
//
// Usage:
//
//	blobtier-server [flags]
//	blobtier-server --config /etc/blobtier/config.yaml
//
// The memory tier is dropped when the process receives the configured
// eviction signal (SIGUSR1 by default). Edits to the config file reload
// the encode quality and the log level without a restart.
package main
