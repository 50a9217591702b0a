// Package tlsroots provides the TLS material of the HTTP server.
//
//   - roots.go: client CA pools for mutual TLS, and the server tls.Config
//   - watcher.go: certificate hot-reload via fsnotify
//
// A certificate rotation usually rewrites both the certificate and the
// key. The watcher waits for the files to go quiet before reloading, and
// keeps serving the previous pair if the new one does not load.
package tlsroots
