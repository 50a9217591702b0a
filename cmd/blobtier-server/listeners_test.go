package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/blobtier-go/internal/server/config"
	"github.com/yndnr/blobtier-go/internal/telemetry/metric"
)

func writeSelfSigned(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "blobtier-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServerTLS(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		cfg, w, err := serverTLS(config.HTTPConfig{}, discardLogger())
		if err != nil || cfg != nil || w != nil {
			t.Errorf("serverTLS() = %v, %v, %v; want all nil", cfg, w, err)
		}
	})

	t.Run("certificate pair", func(t *testing.T) {
		cert, key := writeSelfSigned(t, t.TempDir())
		cfg, w, err := serverTLS(config.HTTPConfig{TLSCertFile: cert, TLSKeyFile: key}, discardLogger())
		if err != nil {
			t.Fatalf("serverTLS() error = %v", err)
		}
		defer w.Stop()
		if cfg.ClientAuth != tls.NoClientCert {
			t.Errorf("ClientAuth = %v", cfg.ClientAuth)
		}
		if c, _ := cfg.GetCertificate(nil); c == nil {
			t.Error("no certificate served")
		}
	})

	t.Run("client ca", func(t *testing.T) {
		cert, key := writeSelfSigned(t, t.TempDir())
		cfg, w, err := serverTLS(config.HTTPConfig{TLSCertFile: cert, TLSKeyFile: key, ClientCAFile: cert}, discardLogger())
		if err != nil {
			t.Fatalf("serverTLS() error = %v", err)
		}
		defer w.Stop()
		if cfg.ClientAuth != tls.RequireAndVerifyClientCert {
			t.Errorf("ClientAuth = %v, want RequireAndVerifyClientCert", cfg.ClientAuth)
		}
	})

	t.Run("bad client ca", func(t *testing.T) {
		dir := t.TempDir()
		cert, key := writeSelfSigned(t, dir)
		if _, _, err := serverTLS(config.HTTPConfig{TLSCertFile: cert, TLSKeyFile: key, ClientCAFile: key}, discardLogger()); err == nil {
			t.Error("a key file is not a CA bundle")
		}
	})
}

func TestAdminSocket(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.BasePath = t.TempDir()

	cache, err := openCache(cfg, metric.NewRegistry(), nil, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	s, err := adminSocket(config.AdminConfig{}, cache, nil, discardLogger())
	if err != nil || s != nil {
		t.Errorf("adminSocket() without path = %v, %v", s, err)
	}

	path := filepath.Join(t.TempDir(), "admin.sock")
	s, err = adminSocket(config.AdminConfig{SocketPath: path}, cache, metric.NewRegistry(), discardLogger())
	if err != nil {
		t.Fatalf("adminSocket() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("socket not created: %v", err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
