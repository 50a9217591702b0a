// Package httpserver provides the HTTP/HTTPS server for blobtier.
//
// This package serves the blob API from package handler using stdlib
// net/http:
//
//   - Blob endpoints: /v1/blobs/{key}, /v1/blobs/{key}/copy,
//     /v1/blobs/{key}/fit/{width}/{height}, /v1/blobs/{key}/variants
//   - Admin endpoints: /admin/v1/*
//   - Health endpoints: /health, /metrics
//
// Features:
//
//   - Per-route middleware chain: RequestID, Recover, Metrics, Audit,
//     RateLimit and AdminToken
//   - Per-client token bucket rate limiting with idle eviction
//   - Graceful shutdown with configurable timeout
package httpserver
