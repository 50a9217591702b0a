package config

import "time"

// ServerConfig is the root configuration for blobtier-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Eviction EvictionSection `koanf:"eviction"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP            HTTPConfig      `koanf:"http"`
	RateLimit       RateLimitConfig `koanf:"rate_limit"`
	Admin           AdminConfig     `koanf:"admin"`
	ShutdownTimeout time.Duration   `koanf:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// ClientCAFile enables mutual TLS: clients must present a certificate
	// signed by a CA in this PEM file.
	ClientCAFile string `koanf:"client_ca_file"`

	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// MaxBodyBytes caps the size of an uploaded blob.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// RateLimitConfig configures per-client request rate limiting.
type RateLimitConfig struct {
	Enabled bool `koanf:"enabled"`

	// RPS is the sustained requests per second allowed per client.
	RPS float64 `koanf:"rps"`

	// Burst is the number of requests a client may make at once.
	Burst int `koanf:"burst"`
}

// AdminConfig protects the /admin endpoints.
type AdminConfig struct {
	// Token, when set, must be presented as "Authorization: Bearer <token>".
	Token string `koanf:"token"`

	// SocketPath, when set, also serves the admin API on a Unix socket
	// without the token.
	SocketPath string `koanf:"socket_path"`
}

// StorageSection configures the cache coordinator.
type StorageSection struct {
	// BasePath holds one directory per namespace. Empty means the user
	// cache directory.
	BasePath  string `koanf:"base_path"`
	Namespace string `koanf:"namespace"`

	// Backend selects the disk tier: "file" or "badger".
	Backend string `koanf:"backend"`

	// Codec selects how blobs are stored: "bytes" (opaque) or "image"
	// (decoded images, re-encoded as Format).
	Codec  string `koanf:"codec"`
	Format string `koanf:"format"`

	// Quality is the encode quality, 1-100. It is reloaded when the
	// config file changes.
	Quality int `koanf:"quality"`

	// MaxPixels bounds the width*height of images decoded from uploads
	// and records. The header is checked before any pixel is allocated.
	MaxPixels int `koanf:"max_pixels"`

	MemoryMaxCost  int64 `koanf:"memory_max_cost"`
	MemoryCounters int64 `koanf:"memory_counters"`
	Workers        int   `koanf:"workers"`

	Badger BadgerSection `koanf:"badger"`
}

// BadgerSection tunes the badger backend.
type BadgerSection struct {
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold"`
	SyncWrites  bool          `koanf:"sync_writes"`
}

// EvictionSection configures memory-tier eviction triggers.
type EvictionSection struct {
	// Signal names the OS signal that clears the memory tier, such as
	// "SIGUSR1". Empty disables it.
	Signal string `koanf:"signal"`
}

// LogSection configures logging.
type LogSection struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	RedactKeys bool   `koanf:"redact_keys"`
}
