// Package main provides the entry point for blobtier-cli.
//
// The CLI opens a cache namespace directly on disk, without a server:
//
//   - Blob commands: put, get, cp, rm and fit
//   - Namespace commands: ls, clear and info
//
// Usage:
//
//	blobtier-cli [global flags] command [flags] [args]
//	blobtier-cli -n thumbs put photo.jpg ./photo.jpg
//	blobtier-cli -n thumbs fit --width 128 --height 128 photo.jpg > thumb.jpg
//	blobtier-cli -n thumbs ls -o json
//
// Do not point the CLI at a namespace a running server holds open with
// the badger backend; badger takes an exclusive directory lock.
package main
