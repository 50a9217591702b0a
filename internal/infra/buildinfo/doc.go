// Package buildinfo exposes build information injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/blobtier-go/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/yndnr/blobtier-go/internal/infra/buildinfo.Commit=abc123"
//
// When Commit or GoVersion are not injected they are read from the module
// build info embedded by the Go toolchain.
package buildinfo
