// Package tests holds end-to-end tests that run the HTTP API over real
// disk backends.
package tests
