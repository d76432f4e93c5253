package pdfdoc

import "errors"

// RasterDPI is the resolution pages are rendered at: twice the PDF user
// space resolution.
const RasterDPI = 144.0

// ErrRasterizerUnavailable is returned when the binary was built without a
// page renderer.
var ErrRasterizerUnavailable = errors.New("PDF page renderer unavailable — rebuild with -tags mupdf")
