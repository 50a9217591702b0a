// Package handler implements the blobtier HTTP API over a cache coordinator.
//
// Blob endpoints:
//
//	PUT    /v1/blobs/{key}?memory=true|false
//	GET    /v1/blobs/{key}
//	DELETE /v1/blobs/{key}
//	POST   /v1/blobs/{key}/copy?to=<key>&memory=true|false
//	GET    /v1/blobs/{key}/fit/{width}/{height}
//	DELETE /v1/blobs/{key}/variants
//
// Admin endpoints:
//
//	GET    /admin/v1/status
//	PUT    /admin/v1/quality
//	POST   /admin/v1/memory/clear
//	DELETE /admin/v1/blobs
//
// Keys travel as a single path segment; keys containing "/" must be
// percent-encoded. Blob bodies are raw bytes. Every other response uses
// the JSON envelope in types.go.
package handler
