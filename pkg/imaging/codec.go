package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // decode support
	"image/jpeg"
	"image/png"
	"strings"
)

// Format is an output encoding.
type Format string

// Supported output formats.
const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
)

// ParseFormat parses a format name. "jpg" is accepted for JPEG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	default:
		return "", fmt.Errorf("imaging: unsupported format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/jpeg"
}

// DefaultMaxPixels is the largest width*height Decode accepts when no
// limit is configured. At four bytes per pixel it bounds a decoded image
// to 160MB.
const DefaultMaxPixels = 40_000_000

// ErrTooManyPixels is returned for images whose header declares more
// pixels than the decoder's limit. The check runs before any pixel buffer
// is allocated.
var ErrTooManyPixels = errors.New("imaging: image dimensions exceed limit")

// Codec stores image.Image values in one format. Decode accepts any
// registered format.
type Codec struct {
	Format Format

	// MaxPixels bounds the dimensions Decode accepts.
	// Default: DefaultMaxPixels
	MaxPixels int
}

// Encode serializes img. quality applies to JPEG only.
func (c Codec) Encode(img image.Image, quality int) ([]byte, error) {
	return Encode(img, c.Format, quality)
}

// Decode parses an encoded image.
func (c Codec) Decode(data []byte) (image.Image, error) {
	img, _, err := Decode(data, c.MaxPixels)
	return img, err
}

// Cost reports the memory held by a decoded image: four bytes per pixel.
func (Codec) Cost(img image.Image) int64 {
	if img == nil {
		return 1
	}
	b := img.Bounds()
	return max(int64(b.Dx())*int64(b.Dy())*4, 1)
}

// Decode parses data after checking its declared dimensions against
// maxPixels (DefaultMaxPixels when maxPixels <= 0). It returns the image
// and the registered format name.
func Decode(data []byte, maxPixels int) (image.Image, string, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("imaging: decode: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("imaging: decode: empty image %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, "", fmt.Errorf("%w: %dx%d, limit %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
	}

	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("imaging: decode: %w", err)
	}
	return img, name, nil
}

// Encode serializes img in format f.
func Encode(img image.Image, f Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case PNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("imaging: encode png: %w", err)
		}
	case JPEG, "":
		quality = min(max(quality, 1), 100)
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("imaging: encode jpeg: %w", err)
		}
	default:
		return nil, fmt.Errorf("imaging: unsupported format %q", f)
	}
	return buf.Bytes(), nil
}
