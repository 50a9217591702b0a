package imaging

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"github.com/yndnr/blobtier-go/internal/storage/keycodec"
)

// Fit scales src down, preserving aspect ratio, so that it fits within
// width x height. Images that already fit are returned unchanged. Scaling
// uses nearest-neighbour sampling.
func Fit(src image.Image, width, height int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw <= width && sh <= height {
		return src
	}

	// Scale by the tighter of the two ratios.
	dw, dh := width, sh*width/sw
	if dh > height {
		dw, dh = sw*height/sh, height
	}
	dw, dh = max(dw, 1), max(dh, 1)

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		sy := b.Min.Y + y*sh/dh
		for x := 0; x < dw; x++ {
			sx := b.Min.X + x*sw/dw
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}

// FitTransformer produces keycodec.Fit variants of decoded images.
type FitTransformer struct{}

// Transform scales img to fit the variant's bounding box.
func (FitTransformer) Transform(ctx context.Context, img image.Image, variant keycodec.Variant) (image.Image, error) {
	fit, err := asFit(variant)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return toRGBA(Fit(img, fit.Width, fit.Height)), nil
}

// BytesFitTransformer produces keycodec.Fit variants of encoded images,
// re-encoding the result in the source's format.
type BytesFitTransformer struct {
	// Quality returns the JPEG quality for re-encoding. Default: 90.
	Quality func() int

	// MaxPixels bounds the source dimensions.
	// Default: DefaultMaxPixels
	MaxPixels int
}

// Transform decodes data, scales it and encodes the result.
func (t BytesFitTransformer) Transform(ctx context.Context, data []byte, variant keycodec.Variant) ([]byte, error) {
	fit, err := asFit(variant)
	if err != nil {
		return nil, err
	}

	img, name, err := Decode(data, t.MaxPixels)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format := JPEG
	if name == "png" || name == "gif" {
		format = PNG
	}
	quality := 90
	if t.Quality != nil {
		quality = t.Quality()
	}
	return Encode(Fit(img, fit.Width, fit.Height), format, quality)
}

func asFit(variant keycodec.Variant) (keycodec.Fit, error) {
	fit, ok := variant.(keycodec.Fit)
	if !ok {
		return keycodec.Fit{}, fmt.Errorf("imaging: unsupported variant %q", variant.VariantKey())
	}
	if !fit.Valid() {
		return keycodec.Fit{}, fmt.Errorf("imaging: invalid bounding box %q", fit.VariantKey())
	}
	return fit, nil
}

// toRGBA returns img as an *image.RGBA, copying when needed, so cached
// variants have a uniform concrete type.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
