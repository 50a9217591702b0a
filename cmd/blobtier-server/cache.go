package main

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/yndnr/blobtier-go/internal/server/config"
	"github.com/yndnr/blobtier-go/internal/server/httpserver/handler"
	"github.com/yndnr/blobtier-go/internal/storage"
	"github.com/yndnr/blobtier-go/internal/storage/disk"
	"github.com/yndnr/blobtier-go/internal/storage/memory"
	"github.com/yndnr/blobtier-go/internal/telemetry/metric"
	"github.com/yndnr/blobtier-go/pkg/imaging"
)

// coordinator is the part of a storage.Coordinator the server drives
// directly, whatever its value type.
type coordinator interface {
	Quality() int
	SetQuality(q int) error
	StoragePath() string
	Close() error
}

// servedCache is an open coordinator and the API routes serving it.
type servedCache struct {
	coordinator
	routes []handler.Route
}

// openCache opens the configured disk tier and builds a coordinator for
// the configured codec.
func openCache(cfg *config.ServerConfig, reg *metric.Registry, eviction []memory.EvictionSource, log *slog.Logger) (*servedCache, error) {
	sc := cfg.Storage

	basePath := sc.BasePath
	if basePath == "" {
		p, err := storage.DefaultBasePath()
		if err != nil {
			return nil, err
		}
		basePath = p
	}

	backend, err := disk.Open(disk.OpenConfig{
		Kind:      sc.Backend,
		BasePath:  basePath,
		Namespace: sc.Namespace,
		Badger: disk.BadgerConfig{
			GCInterval:  sc.Badger.GCInterval,
			GCThreshold: sc.Badger.GCThreshold,
			SyncWrites:  sc.Badger.SyncWrites,
			Registerer:  reg.Registerer(),
		},
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	mem := memory.Config{
		MaxCost:     sc.MemoryMaxCost,
		NumCounters: sc.MemoryCounters,
	}
	maxBody := cfg.Server.HTTP.MaxBodyBytes

	switch sc.Codec {
	case config.CodecImage:
		format, err := imaging.ParseFormat(sc.Format)
		if err != nil {
			backend.Close()
			return nil, err
		}
		c, err := storage.New(storage.Config[image.Image]{
			Namespace:   sc.Namespace,
			BasePath:    basePath,
			Codec:       imaging.Codec{Format: format, MaxPixels: sc.MaxPixels},
			Transformer: imaging.FitTransformer{},
			Quality:     sc.Quality,
			Memory:      mem,
			Backend:     backend,
			Workers:     sc.Workers,
			Eviction:    eviction,
			Metrics:     reg,
			Logger:      log,
		})
		if err != nil {
			backend.Close()
			return nil, err
		}
		h := handler.New(handler.Config[image.Image]{
			Cache:        c,
			Payload:      handler.ImagePayload{Format: format, Quality: c.Quality, MaxPixels: sc.MaxPixels},
			MaxBodyBytes: maxBody,
			Logger:       log,
		})
		return &servedCache{coordinator: c, routes: h.Routes()}, nil

	case config.CodecBytes, "":
		var c *storage.Coordinator[[]byte]
		c, err = storage.New(storage.Config[[]byte]{
			Namespace: sc.Namespace,
			BasePath:  basePath,
			Codec:     storage.BytesCodec{},
			Transformer: imaging.BytesFitTransformer{
				Quality:   func() int { return c.Quality() },
				MaxPixels: sc.MaxPixels,
			},
			Quality:  sc.Quality,
			Memory:   mem,
			Backend:  backend,
			Workers:  sc.Workers,
			Eviction: eviction,
			Metrics:  reg,
			Logger:   log,
		})
		if err != nil {
			backend.Close()
			return nil, err
		}
		h := handler.New(handler.Config[[]byte]{
			Cache:        c,
			Payload:      handler.RawPayload{},
			MaxBodyBytes: maxBody,
			Logger:       log,
		})
		return &servedCache{coordinator: c, routes: h.Routes()}, nil

	default:
		backend.Close()
		return nil, fmt.Errorf("unknown codec %q", sc.Codec)
	}
}
