package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/blobtier-go/internal/storage"
	"github.com/yndnr/blobtier-go/pkg/imaging"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyEviction(&cfg.Eviction); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.HTTP.Addr == "" {
		return errors.New("server.http.addr is required")
	}
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr %q: %w", cfg.HTTP.Addr, err)
	}

	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	if cfg.HTTP.ClientCAFile != "" && cfg.HTTP.TLSCertFile == "" {
		return errors.New("server.http.client_ca_file requires tls_cert_file and tls_key_file")
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile, cfg.HTTP.ClientCAFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("tls file: %w", err)
		}
	}

	if p := cfg.Admin.SocketPath; p != "" {
		if _, err := os.Stat(filepath.Dir(p)); err != nil {
			return fmt.Errorf("server.admin.socket_path: %w", err)
		}
	}

	if cfg.HTTP.MaxBodyBytes <= 0 {
		return errors.New("server.http.max_body_bytes must be positive")
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RPS <= 0 {
			return errors.New("server.rate_limit.rps must be positive")
		}
		if cfg.RateLimit.Burst < 1 {
			return errors.New("server.rate_limit.burst must be at least 1")
		}
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if err := storage.ValidateNamespace(cfg.Namespace); err != nil {
		return fmt.Errorf("storage.namespace: %w", err)
	}
	if err := storage.ValidateQuality(cfg.Quality); err != nil {
		return fmt.Errorf("storage.quality: %w", err)
	}

	switch cfg.Backend {
	case BackendFile, BackendBadger:
	default:
		return fmt.Errorf("storage.backend %q: must be %q or %q", cfg.Backend, BackendFile, BackendBadger)
	}

	switch cfg.Codec {
	case CodecBytes:
	case CodecImage:
		if _, err := imaging.ParseFormat(cfg.Format); err != nil {
			return fmt.Errorf("storage.format: %w", err)
		}
	default:
		return fmt.Errorf("storage.codec %q: must be %q or %q", cfg.Codec, CodecBytes, CodecImage)
	}

	if cfg.MaxPixels <= 0 {
		return errors.New("storage.max_pixels must be positive")
	}
	if cfg.MemoryMaxCost <= 0 {
		return errors.New("storage.memory_max_cost must be positive")
	}
	if cfg.MemoryCounters <= 0 {
		return errors.New("storage.memory_counters must be positive")
	}
	if cfg.Workers < 0 {
		return errors.New("storage.workers must not be negative")
	}
	if cfg.Backend == BackendBadger && (cfg.Badger.GCThreshold <= 0 || cfg.Badger.GCThreshold >= 1) {
		return errors.New("storage.badger.gc_threshold must be between 0 and 1")
	}
	return nil
}

func verifyEviction(cfg *EvictionSection) error {
	if cfg.Signal == "" {
		return nil
	}
	if _, err := ParseSignal(cfg.Signal); err != nil {
		return fmt.Errorf("eviction.signal: %w", err)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q: must be debug, info, warn or error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format %q: must be json or text", cfg.Format)
	}
	return nil
}
