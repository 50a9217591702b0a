package config

import (
	"time"

	"github.com/yndnr/blobtier-go/pkg/imaging"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Codecs.
const (
	CodecBytes = "bytes"
	CodecImage = "image"
)

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultMaxBodyBytes    = 64 << 20
	DefaultShutdownTimeout = 15 * time.Second

	DefaultRateLimitRPS   = 200
	DefaultRateLimitBurst = 400

	DefaultNamespace      = "default"
	DefaultBackend        = BackendFile
	DefaultCodec          = CodecBytes
	DefaultFormat         = "jpeg"
	DefaultQuality        = 90
	DefaultMaxPixels      = imaging.DefaultMaxPixels
	DefaultMemoryMaxCost  = 256 << 20
	DefaultMemoryCounters = 100_000

	DefaultBadgerGCInterval  = 10 * time.Minute
	DefaultBadgerGCThreshold = 0.5

	DefaultEvictionSignal = "SIGUSR1"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:         DefaultHTTPAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
				MaxBodyBytes: DefaultMaxBodyBytes,
			},
			RateLimit: RateLimitConfig{
				Enabled: false,
				RPS:     DefaultRateLimitRPS,
				Burst:   DefaultRateLimitBurst,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			Namespace:      DefaultNamespace,
			Backend:        DefaultBackend,
			Codec:          DefaultCodec,
			Format:         DefaultFormat,
			Quality:        DefaultQuality,
			MaxPixels:      DefaultMaxPixels,
			MemoryMaxCost:  DefaultMemoryMaxCost,
			MemoryCounters: DefaultMemoryCounters,
			Badger: BadgerSection{
				GCInterval:  DefaultBadgerGCInterval,
				GCThreshold: DefaultBadgerGCThreshold,
			},
		},
		Eviction: EvictionSection{
			Signal: DefaultEvictionSignal,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
