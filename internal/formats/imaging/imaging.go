// Package imaging re-encodes raster images and renders text-only slide
// cards.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// JPEGQuality is used for every JPEG this package writes.
const JPEGQuality = 92

// Format names accepted by Convert.
const (
	PNG  = "png"
	JPEG = "jpeg"
)

// Info describes an encoded image without decoding its pixels.
type Info struct {
	Width, Height int
	Format        string
}

// Config reads the dimensions and format of an encoded image.
func Config(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("could not read image header — the file may be corrupt: %w", err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Convert decodes a PNG or JPEG image and re-encodes it as target. JPEG
// output flattens transparent pixels onto white.
func Convert(data []byte, target string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not decode image — the file may be corrupt: %w", err)
	}
	return Encode(img, target)
}

// Encode writes img in the target format.
func Encode(img image.Image, target string) ([]byte, error) {
	var buf bytes.Buffer
	switch target {
	case PNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("could not encode PNG: %w", err)
		}
	case JPEG, "jpg":
		if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, fmt.Errorf("could not encode JPEG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported image format %q", target)
	}
	return buf.Bytes(), nil
}

// flatten composites img over an opaque white background.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
