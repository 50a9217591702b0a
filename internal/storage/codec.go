package storage

import (
	"context"

	"github.com/yndnr/blobtier-go/internal/storage/keycodec"
)

// Codec converts cached values to and from their stored bytes.
type Codec[V any] interface {
	// Encode serializes v. quality is the coordinator's current quality
	// setting (1-100); codecs without a notion of quality ignore it.
	Encode(v V, quality int) ([]byte, error)

	// Decode parses a stored payload.
	Decode(data []byte) (V, error)
}

// Coster is implemented by codecs whose decoded values occupy a different
// amount of memory than their encoded form. The memory tier charges each
// entry Cost(v); codecs without it are charged the encoded length.
type Coster[V any] interface {
	Cost(v V) int64
}

// BytesCodec stores []byte values as they are.
type BytesCodec struct{}

// Cost implements Coster.
func (BytesCodec) Cost(v []byte) int64 {
	return int64(len(v))
}

// Encode implements Codec.
func (BytesCodec) Encode(v []byte, _ int) ([]byte, error) {
	return v, nil
}

// Decode implements Codec.
func (BytesCodec) Decode(data []byte) ([]byte, error) {
	return data, nil
}

// Transformer produces a variant of a value.
type Transformer[V any] interface {
	Transform(ctx context.Context, v V, variant keycodec.Variant) (V, error)
}

// TransformFunc adapts a function to the Transformer interface.
type TransformFunc[V any] func(ctx context.Context, v V, variant keycodec.Variant) (V, error)

// Transform implements Transformer.
func (f TransformFunc[V]) Transform(ctx context.Context, v V, variant keycodec.Variant) (V, error) {
	return f(ctx, v, variant)
}
