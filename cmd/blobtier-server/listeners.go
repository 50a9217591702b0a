package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/yndnr/blobtier-go/internal/infra/tlsroots"
	"github.com/yndnr/blobtier-go/internal/server/config"
	"github.com/yndnr/blobtier-go/internal/server/httpserver"
	"github.com/yndnr/blobtier-go/internal/server/localserver"
	"github.com/yndnr/blobtier-go/internal/telemetry/metric"
)

// serverTLS loads the certificate pair and client CAs. It returns a nil
// config when TLS is not configured. The watcher reloads the pair when
// its files change; the caller starts and stops it.
func serverTLS(cfg config.HTTPConfig, log *slog.Logger) (*tls.Config, *tlsroots.Watcher, error) {
	if cfg.TLSCertFile == "" {
		return nil, nil, nil
	}

	w, err := tlsroots.NewWatcher(cfg.TLSCertFile, cfg.TLSKeyFile, tlsroots.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}

	var clientCAs *tlsroots.Pool
	if cfg.ClientCAFile != "" {
		clientCAs, err = tlsroots.LoadPool(cfg.ClientCAFile)
		if err != nil {
			return nil, nil, fmt.Errorf("client ca: %w", err)
		}
		log.Info("mutual TLS enabled", "client_ca_file", cfg.ClientCAFile, "ca_count", clientCAs.Len())
	}
	return tlsroots.ServerConfig(w, clientCAs), w, nil
}

// adminSocket builds the local admin server, or returns nil when no
// socket path is configured.
func adminSocket(cfg config.AdminConfig, cache *servedCache, reg *metric.Registry, log *slog.Logger) (*localserver.Server, error) {
	if cfg.SocketPath == "" {
		return nil, nil
	}
	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Routes:      cache.routes,
		Metrics:     reg,
		Local:       true,
		EnableAudit: true,
		Logger:      log,
	})
	s := localserver.New(localserver.Config{
		SocketPath: cfg.SocketPath,
		Handler:    router,
		Logger:     log,
	})
	if err := s.Listen(); err != nil {
		return nil, err
	}
	return s, nil
}
