//go:build mupdf

package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// RasterAvailable reports whether Rasterize can render pages.
const RasterAvailable = true

// Rasterize renders every page to PNG at RasterDPI.
func Rasterize(ctx context.Context, data []byte, onPage func(page, total int)) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		if isEncryptionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return nil, fmt.Errorf("failed reading document: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	out := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.ImageDPI(i, RasterDPI)
		if err != nil {
			return nil, fmt.Errorf("could not render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("could not encode page %d: %w", i+1, err)
		}
		out = append(out, buf.Bytes())
		if onPage != nil {
			onPage(i+1, total)
		}
	}
	return out, nil
}
