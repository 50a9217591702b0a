// Package command provides the blobtier-cli commands.
//
// The CLI opens a cache namespace directly, without a server:
//
//   - root.go: App, global flags, configuration and opening the cache
//   - blob.go: put, get, cp, rm and fit
//   - namespace.go: ls, clear and info
//
// Every command opens the coordinator, runs one operation and closes it.
// Memory-tier behaviour therefore only matters within a single command.
package command
