package pdfgen

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/klytics/docconv/internal/docmodel"
)

// Page geometry for model documents, in millimetres.
const (
	pageMargin  = 10.0
	listIndent  = 7.0
	markerWidth = 6.0
	cellPadding = 1.5
	lineFactor  = 1.4
)

var headerFill = [3]int{0xf0, 0xf0, 0xf0}

// Native lays the model out directly with gofpdf on A4 pages.
type Native struct {
	Fonts Fonts
}

// Document implements Engine.
func (n *Native) Document(ctx context.Context, doc *docmodel.Document, opts Options) ([]byte, error) {
	orientation := "P"
	if opts.Landscape {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCreator("docconv", true)
	if doc.Title != "" {
		pdf.SetTitle(doc.Title, true)
	}
	pdf.AddPage()

	style := doc.Style
	if style.Font == "" {
		style.Font = docmodel.DefaultStyle.Font
	}
	if style.Size <= 0 {
		style.Size = docmodel.DefaultStyle.Size
	}

	text, err := n.Fonts.setup(pdf, style.Font, docmodel.PlainText(doc))
	if err != nil {
		return nil, err
	}

	r := &renderer{
		pdf:   pdf,
		text:  text,
		style: style,
		left:  pageMargin,
	}
	for _, blk := range doc.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.block(blk, 0, false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("could not generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

type renderer struct {
	pdf   *gofpdf.Fpdf
	text  textSetup
	style docmodel.TextStyle
	left  float64
}

func (r *renderer) lineHeight(size float64) float64 {
	return ptToMM(size * lineFactor)
}

// block renders one block. Inside list items (compact) paragraphs carry no
// vertical margins so the first one stays on the marker's line.
func (r *renderer) block(blk docmodel.Block, depth int, compact bool) {
	switch v := blk.(type) {
	case *docmodel.Paragraph:
		if !compact {
			r.space(v.Margin.Top)
		}
		r.inlines(v.Inlines, r.style.Size, 0)
		r.pdf.Ln(r.lineHeight(r.style.Size))
		if !compact {
			r.space(v.Margin.Bottom)
		}
	case *docmodel.Heading:
		size := v.FontSize()
		r.space(v.Margin.Top)
		r.inlines(v.Inlines, size, docmodel.Bold)
		r.pdf.Ln(r.lineHeight(size))
		r.space(v.Margin.Bottom)
	case *docmodel.List:
		r.space(v.Margin.Top)
		r.list(v, depth)
		r.space(v.Margin.Bottom)
	case *docmodel.Table:
		r.space(v.Margin.Top)
		r.table(v)
		r.space(v.Margin.Bottom)
	}
}

func (r *renderer) space(pt float64) {
	if pt > 0 {
		r.pdf.Ln(ptToMM(pt))
	}
}

func (r *renderer) inlines(inlines []docmodel.Inline, size float64, extra docmodel.Modifier) {
	h := r.lineHeight(size)
	for _, in := range inlines {
		if in.Break {
			r.pdf.Ln(h)
			continue
		}
		r.pdf.SetFont(r.text.family, (in.Style | extra).String(), size)
		if in.Placeholder {
			r.pdf.SetTextColor(0x88, 0x88, 0x88)
			r.pdf.Write(h, r.text.encode(in.Text))
			r.pdf.SetTextColor(0, 0, 0)
			continue
		}
		r.pdf.Write(h, r.text.encode(in.Text))
	}
}

func (r *renderer) list(l *docmodel.List, depth int) {
	h := r.lineHeight(r.style.Size)
	left := r.left + listIndent*float64(depth+1)

	for i, item := range l.Items {
		marker := "•"
		if l.Ordered {
			marker = fmt.Sprintf("%d.", i+1)
		}

		r.pdf.SetLeftMargin(left)
		r.pdf.SetX(left - markerWidth)
		r.pdf.SetFont(r.text.family, "", r.style.Size)
		r.pdf.CellFormat(markerWidth, h, r.text.encode(marker), "", 0, "L", false, 0, "")

		if len(item.Blocks) == 0 {
			r.pdf.Ln(h)
		}
		for j, blk := range item.Blocks {
			if nested, ok := blk.(*docmodel.List); ok {
				if j == 0 {
					r.pdf.Ln(h)
				}
				r.list(nested, depth+1)
				r.pdf.SetLeftMargin(left)
				continue
			}
			r.block(blk, depth+1, true)
		}
	}

	r.pdf.SetLeftMargin(r.left + listIndent*float64(depth))
	r.pdf.SetX(r.left + listIndent*float64(depth))
}

func (r *renderer) table(t *docmodel.Table) {
	cols := t.ColumnCount()
	if cols == 0 || len(t.Rows) == 0 {
		return
	}

	pageW, pageH := r.pdf.GetPageSize()
	_, _, _, bottom := r.pdf.GetMargins()
	usable := pageW - 2*pageMargin
	widths := columnWidths(t, cols, usable)
	h := r.lineHeight(r.style.Size)

	drawRow := func(row []string, header bool) {
		style := ""
		if header {
			style = "B"
		}
		r.pdf.SetFont(r.text.family, style, r.style.Size)

		lines := 1
		for c := 0; c < cols; c++ {
			if n := r.lineCount(cell(row, c), widths[c]-2*cellPadding); n > lines {
				lines = n
			}
		}
		rowH := float64(lines)*h + 2*cellPadding

		if r.pdf.GetY()+rowH > pageH-bottom {
			r.pdf.AddPage()
		}

		x, y := pageMargin, r.pdf.GetY()
		for c := 0; c < cols; c++ {
			if header {
				r.pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
				r.pdf.Rect(x, y, widths[c], rowH, "FD")
			} else {
				r.pdf.Rect(x, y, widths[c], rowH, "D")
			}
			r.pdf.SetXY(x+cellPadding, y+cellPadding)
			r.pdf.MultiCell(widths[c]-2*cellPadding, h, r.text.encode(cell(row, c)), "", "L", false)
			x += widths[c]
		}
		r.pdf.SetXY(pageMargin, y+rowH)
	}

	// Tables never auto-break mid-row; rows are moved to the next page whole.
	r.pdf.SetAutoPageBreak(false, pageMargin)
	defer r.pdf.SetAutoPageBreak(true, pageMargin)

	for i, row := range t.Rows {
		drawRow(row, t.Header && i == 0)
	}
	r.pdf.SetX(r.left)
}

// lineCount returns how many lines s wraps to in width w.
func (r *renderer) lineCount(s string, w float64) int {
	s = r.text.encode(s)
	if r.text.unicode {
		return len(r.pdf.SplitText(s, w))
	}
	return len(r.pdf.SplitLines([]byte(s), w))
}

func cell(row []string, c int) string {
	if c < len(row) {
		return row[c]
	}
	return ""
}

func columnWidths(t *docmodel.Table, cols int, usable float64) []float64 {
	widths := make([]float64, cols)
	total := 0.0
	for c := 0; c < cols; c++ {
		w := 1.0
		if c < len(t.Columns) && t.Columns[c].Weight > 0 {
			w = t.Columns[c].Weight
		}
		widths[c] = w
		total += w
	}
	for c := range widths {
		widths[c] = usable * widths[c] / total
	}
	return widths
}
