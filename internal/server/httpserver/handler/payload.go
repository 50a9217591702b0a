package handler

import (
	"image"
	"net/http"

	"github.com/yndnr/blobtier-go/pkg/imaging"
)

// Payload converts between HTTP bodies and cached values.
type Payload[V any] interface {
	// FromBody parses an uploaded body. Errors are reported as 400, except
	// imaging.ErrTooManyPixels, which is reported as 413.
	FromBody(body []byte) (V, error)

	// ToBody serializes a value for a response.
	ToBody(v V) ([]byte, string, error)
}

// RawPayload stores bodies as opaque bytes.
type RawPayload struct{}

// FromBody implements Payload.
func (RawPayload) FromBody(body []byte) ([]byte, error) {
	return body, nil
}

// ToBody implements Payload. The content type is sniffed from the data.
func (RawPayload) ToBody(v []byte) ([]byte, string, error) {
	return v, http.DetectContentType(v), nil
}

// ImagePayload stores bodies as decoded images and serves them in Format.
type ImagePayload struct {
	Format imaging.Format

	// Quality returns the quality for response encoding.
	Quality func() int

	// MaxPixels bounds the dimensions of uploaded images.
	// Default: imaging.DefaultMaxPixels
	MaxPixels int
}

// FromBody implements Payload.
func (p ImagePayload) FromBody(body []byte) (image.Image, error) {
	return imaging.Codec{Format: p.Format, MaxPixels: p.MaxPixels}.Decode(body)
}

// ToBody implements Payload.
func (p ImagePayload) ToBody(img image.Image) ([]byte, string, error) {
	q := 0
	if p.Quality != nil {
		q = p.Quality()
	}
	data, err := imaging.Encode(img, p.Format, q)
	if err != nil {
		return nil, "", err
	}
	return data, p.Format.ContentType(), nil
}
