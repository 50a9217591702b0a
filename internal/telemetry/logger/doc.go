// Package logger provides structured logging for blobtier.
//
// This package wraps log/slog:
//
//   - logger.go: Logger configuration and initialization
//   - context.go: Context-aware logging with request IDs
//   - redact.go: Redaction of credentials and cache keys
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering, adjustable at runtime
//   - Masking of signed URL query strings and credential fields
//   - Optional fingerprinting of cache keys (RedactKeys)
//   - Context propagation for request tracing
package logger
