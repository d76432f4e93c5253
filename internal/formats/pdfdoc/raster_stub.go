//go:build !mupdf

package pdfdoc

import "context"

// RasterAvailable reports whether Rasterize can render pages.
const RasterAvailable = false

// Rasterize always fails without the mupdf build tag.
func Rasterize(ctx context.Context, data []byte, onPage func(page, total int)) ([][]byte, error) {
	return nil, ErrRasterizerUnavailable
}
