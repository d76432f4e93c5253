package pdfgen

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/klytics/docconv/internal/docmodel"
)

// ErrBrowserUnavailable wraps failures to launch or reach Chrome.
type ErrBrowserUnavailable struct {
	Err error
}

func (e *ErrBrowserUnavailable) Error() string {
	return "headless browser unavailable: " + e.Err.Error()
}

func (e *ErrBrowserUnavailable) Unwrap() error { return e.Err }

// BrowserConfig configures the headless Chrome engine.
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome. Empty
	// launches a local headless Chrome.
	RemoteURL string
	Logger    *slog.Logger
}

// Browser renders the model to HTML and prints it with headless Chrome.
type Browser struct {
	cfg BrowserConfig
}

// NewBrowser returns a Browser engine.
func NewBrowser(cfg BrowserConfig) *Browser {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Browser{cfg: cfg}
}

// LookupChrome returns the path of a local Chrome or Chromium binary.
func LookupChrome() (string, bool) {
	return launcher.LookPath()
}

// Document implements Engine. Each call uses its own browser session.
func (b *Browser) Document(ctx context.Context, doc *docmodel.Document, opts Options) ([]byte, error) {
	browser, cleanup, err := b.connect()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, &ErrBrowserUnavailable{Err: fmt.Errorf("open page: %w", err)}
	}
	defer page.Close()

	if err := page.SetDocumentContent(docmodel.RenderHTML(doc)); err != nil {
		return nil, fmt.Errorf("could not load document into browser: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("could not load document into browser: %w", err)
	}

	margin := pageMargin / 25.4
	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		Landscape:       opts.Landscape,
		PaperWidth:      ptr(8.27),
		PaperHeight:     ptr(11.69),
		MarginTop:       &margin,
		MarginBottom:    &margin,
		MarginLeft:      &margin,
		MarginRight:     &margin,
	})
	if err != nil {
		return nil, fmt.Errorf("could not print PDF: %w", err)
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("could not read printed PDF: %w", err)
	}
	return data, nil
}

func (b *Browser) connect() (*rod.Browser, func(), error) {
	log := b.cfg.Logger

	var (
		wsURL string
		lnch  *launcher.Launcher
	)
	if b.cfg.RemoteURL != "" {
		wsURL = b.cfg.RemoteURL
		log.Debug("pdfgen: connecting to remote browser", "url", wsURL)
	} else {
		lnch = launcher.New().Headless(true)
		u, err := lnch.Launch()
		if err != nil {
			return nil, nil, &ErrBrowserUnavailable{Err: fmt.Errorf("launch: %w", err)}
		}
		wsURL = u
		log.Debug("pdfgen: launched local chrome", "url", wsURL)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		if lnch != nil {
			lnch.Kill()
		}
		return nil, nil, &ErrBrowserUnavailable{Err: fmt.Errorf("connect: %w", err)}
	}

	// A remote Chrome is shared; only a locally launched one is shut down.
	cleanup := func() {
		if lnch == nil {
			return
		}
		if err := browser.Close(); err != nil {
			log.Debug("pdfgen: closing browser", "error", err)
		}
		lnch.Kill()
		lnch.Cleanup()
	}
	return browser, cleanup, nil
}

func ptr[T any](v T) *T { return &v }
