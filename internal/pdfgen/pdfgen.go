// Package pdfgen produces PDF files from the print document model, slide
// text and raster images.
package pdfgen

import (
	"context"
	"fmt"

	"github.com/klytics/docconv/internal/docmodel"
)

// Engine renders a document model to PDF bytes.
type Engine interface {
	Document(ctx context.Context, doc *docmodel.Document, opts Options) ([]byte, error)
}

// Options control page setup.
type Options struct {
	Landscape bool
}

// Engine names accepted by New.
const (
	EngineNative  = "native"
	EngineBrowser = "browser"
)

// New returns the engine registered under name. fonts only applies to the
// native engine; the browser engine uses the fonts Chrome finds.
func New(name string, fonts Fonts, browser BrowserConfig) (Engine, error) {
	switch name {
	case "", EngineNative:
		return &Native{Fonts: fonts}, nil
	case EngineBrowser:
		return NewBrowser(browser), nil
	default:
		return nil, fmt.Errorf("unknown PDF engine %q — use %q or %q", name, EngineNative, EngineBrowser)
	}
}

const ptPerMM = 72 / 25.4

func ptToMM(pt float64) float64 {
	return pt / ptPerMM
}
