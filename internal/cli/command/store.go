package command

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/yndnr/blobtier-go/internal/storage"
	"github.com/yndnr/blobtier-go/internal/storage/disk"
	"github.com/yndnr/blobtier-go/internal/storage/keycodec"
	"github.com/yndnr/blobtier-go/pkg/imaging"
)

// blobStore is a coordinator seen through its codec: values go in and
// come out as encoded bytes.
type blobStore interface {
	Namespace() string
	StoragePath() string
	Quality() int

	Put(ctx context.Context, key string, data []byte, memoryAlso bool) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Fit(ctx context.Context, key string, fit keycodec.Fit) ([]byte, bool, error)
	Copy(ctx context.Context, from, to string, memoryAlso bool) error
	Remove(ctx context.Context, key string) error
	PurgeVariants(ctx context.Context, key string) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// codecStore adapts a Coordinator[V] to blobStore using the coordinator's
// own codec.
type codecStore[V any] struct {
	*storage.Coordinator[V]
	codec storage.Codec[V]
}

func (s codecStore[V]) Put(ctx context.Context, key string, data []byte, memoryAlso bool) error {
	v, err := s.codec.Decode(data)
	if err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return s.Set(ctx, key, v, memoryAlso)
}

// Get returns the record as stored, so image bytes are not re-encoded.
func (s codecStore[V]) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.GetRecord(ctx, key)
}

// Fit encodes the variant at the current quality. A variant computed by
// this call is encoded twice: once for its record, once for output.
func (s codecStore[V]) Fit(ctx context.Context, key string, fit keycodec.Fit) ([]byte, bool, error) {
	v, fromCache, err := s.ScaledVariant(ctx, key, fit)
	if err != nil {
		return nil, false, err
	}
	data, err := s.codec.Encode(v, s.Quality())
	return data, fromCache, err
}

// storeOptions selects and configures the cache to open.
type storeOptions struct {
	BasePath  string
	Namespace string
	Backend   string
	Codec     string
	Format    string
	Quality   int
	Logger    *slog.Logger
}

// openStore opens the disk backend and a coordinator over it. The backend
// is returned too, for listing.
func openStore(opts storeOptions) (blobStore, disk.Backend, error) {
	if opts.BasePath == "" {
		p, err := storage.DefaultBasePath()
		if err != nil {
			return nil, nil, err
		}
		opts.BasePath = p
	}
	if err := storage.ValidateNamespace(opts.Namespace); err != nil {
		return nil, nil, err
	}

	backend, err := disk.Open(disk.OpenConfig{
		Kind:      opts.Backend,
		BasePath:  opts.BasePath,
		Namespace: opts.Namespace,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, nil, err
	}

	var store blobStore
	switch opts.Codec {
	case "image":
		format, ferr := imaging.ParseFormat(opts.Format)
		if ferr != nil {
			backend.Close()
			return nil, nil, ferr
		}
		codec := imaging.Codec{Format: format}
		c, cerr := storage.New(storage.Config[image.Image]{
			Namespace:   opts.Namespace,
			BasePath:    opts.BasePath,
			Codec:       codec,
			Transformer: imaging.FitTransformer{},
			Quality:     opts.Quality,
			Backend:     backend,
			Logger:      opts.Logger,
		})
		if cerr != nil {
			backend.Close()
			return nil, nil, cerr
		}
		store = codecStore[image.Image]{Coordinator: c, codec: codec}

	case "bytes", "":
		var c *storage.Coordinator[[]byte]
		c, err = storage.New(storage.Config[[]byte]{
			Namespace: opts.Namespace,
			BasePath:  opts.BasePath,
			Codec:     storage.BytesCodec{},
			Transformer: imaging.BytesFitTransformer{
				Quality: func() int { return c.Quality() },
			},
			Quality: opts.Quality,
			Backend: backend,
			Logger:  opts.Logger,
		})
		if err != nil {
			backend.Close()
			return nil, nil, err
		}
		store = codecStore[[]byte]{Coordinator: c, codec: storage.BytesCodec{}}

	default:
		backend.Close()
		return nil, nil, fmt.Errorf("unknown codec %q (want bytes or image)", opts.Codec)
	}
	return store, backend, nil
}
