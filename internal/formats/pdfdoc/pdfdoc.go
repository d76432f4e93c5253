// Package pdfdoc reads PDF documents: page counts through pdfcpu, the text
// layer through ledongthuc/pdf, and page rasters through MuPDF when built
// with the mupdf tag.
package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// UnparsedPageText replaces the text of a page whose content stream could
// not be read.
const UnparsedPageText = "(page could not be parsed)"

// Line reconstruction thresholds, in points.
const (
	lineBreakDelta = 5.0
	spaceGapRatio  = 0.2
	fallbackGap    = 2.0
)

// ErrEncrypted is returned for password-protected documents.
var ErrEncrypted = errors.New("PDF is encrypted")

func init() {
	// pdfcpu otherwise writes a config directory under the user's home.
	api.DisableConfigDir()
}

// Fragment is one positioned string from a page's content stream.
type Fragment struct {
	Text     string
	X, Y     float64
	W        float64
	FontSize float64
}

// Page is the extracted text layer of one page. Err is set when the page
// could not be parsed; Text then holds UnparsedPageText.
type Page struct {
	Number    int
	Fragments []Fragment
	Text      string
	Err       error
}

// PageCount returns the number of pages without reading page content.
func PageCount(ctx context.Context, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		if isEncryptionError(err) {
			return 0, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return 0, fmt.Errorf("could not read PDF structure: %w", err)
	}
	return n, nil
}

func isEncryptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}

// ExtractText reads the text layer page by page. A page that fails to parse
// yields a placeholder page instead of failing the document. onPage, when
// non-nil, is called after each page with the 1-based page number.
func ExtractText(ctx context.Context, data []byte, onPage func(page, total int)) ([]Page, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if isEncryptionError(err) {
			return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return nil, fmt.Errorf("could not open PDF: %w", err)
	}

	total := r.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := readPage(r, i)
		pages = append(pages, page)
		if onPage != nil {
			onPage(i, total)
		}
	}
	return pages, nil
}

func readPage(r *pdf.Reader, n int) (page Page) {
	page.Number = n
	defer func() {
		if rec := recover(); rec != nil {
			page.Fragments = nil
			page.Text = UnparsedPageText
			page.Err = fmt.Errorf("page %d: %v", n, rec)
		}
	}()

	p := r.Page(n)
	if p.V.IsNull() {
		return page
	}

	for _, t := range p.Content().Text {
		page.Fragments = append(page.Fragments, Fragment{
			Text:     t.S,
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
			FontSize: t.FontSize,
		})
	}
	page.Text = JoinFragments(page.Fragments)
	return page
}

// JoinFragments rebuilds text from positioned fragments in stream order: a
// vertical move of more than 5pt starts a new line, and a horizontal gap
// wider than a fifth of the font size inserts a space.
func JoinFragments(frags []Fragment) string {
	var b strings.Builder
	for i, f := range frags {
		if i > 0 {
			prev := frags[i-1]
			switch {
			case math.Abs(f.Y-prev.Y) > lineBreakDelta:
				b.WriteString("\n")
			case f.X-(prev.X+prev.W) > gapThreshold(prev):
				if !strings.HasSuffix(prev.Text, " ") && !strings.HasPrefix(f.Text, " ") {
					b.WriteString(" ")
				}
			}
		}
		b.WriteString(f.Text)
	}
	return b.String()
}

func gapThreshold(f Fragment) float64 {
	if f.FontSize <= 0 {
		return fallbackGap
	}
	return f.FontSize * spaceGapRatio
}

// Lines splits page text into non-empty trimmed lines.
func (p Page) Lines() []string {
	var out []string
	for _, l := range strings.Split(p.Text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
