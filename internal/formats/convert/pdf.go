package convert

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/klytics/docconv/internal/docmodel"
	"github.com/klytics/docconv/internal/formats/docx"
	"github.com/klytics/docconv/internal/formats/pdfdoc"
)

// pdfPageCSS styles the per-page boxes of PDF→HTML output.
const pdfPageCSS = `body { font-family: "Noto Sans", Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 40px; line-height: 1.6; }
    .page { border: 1px solid #ddd; padding: 40px; margin: 20px 0; box-shadow: 0 2px 8px rgba(0,0,0,0.1); }
    .page-number { text-align: center; color: #999; margin-top: 10px; font-size: 12px; }`

func extractPages(ctx context.Context, c *Converter, j *job) ([]pdfdoc.Page, error) {
	j.report(StageParse, "parse")
	onPage := j.pageProgress(StageParse, StageConvert, "page")
	return parse(ctx, c, func(ctx context.Context) ([]pdfdoc.Page, error) {
		return c.cfg.PDF.ExtractText(ctx, j.Data, onPage)
	})
}

func logUnparsed(c *Converter, j *job, pages []pdfdoc.Page) {
	for _, p := range pages {
		if p.Err != nil {
			c.cfg.Logger.Warn("convert: page text unavailable", "file", j.Name, "page", p.Number, "error", p.Err)
		}
	}
}

// pdfToDocx writes one paragraph per page, separated by page breaks.
func pdfToDocx(ctx context.Context, c *Converter, j *job) (*output, error) {
	pages, err := extractPages(ctx, c, j)
	if err != nil {
		return nil, err
	}
	logUnparsed(c, j, pages)

	j.report(StageConvert, "convert")
	doc := &docx.Document{Metadata: docx.Metadata{Title: j.title}}
	for i, p := range pages {
		var runs []docx.Run
		if i > 0 {
			runs = append(runs, docx.Run{PageBreak: true})
		}
		runs = append(runs, docx.Run{Text: strings.Join(p.Lines(), "\n")})
		doc.Nodes = append(doc.Nodes, docx.Node{Type: docx.NodeParagraph, Runs: runs})
	}

	j.report(StageGenerate, "generate")
	data, err := docx.WriteDocument(doc)
	if err != nil {
		return nil, err
	}
	return single("docx", data), nil
}

func pdfToHTML(ctx context.Context, c *Converter, j *job) (*output, error) {
	pages, err := extractPages(ctx, c, j)
	if err != nil {
		return nil, err
	}
	logUnparsed(c, j, pages)

	j.report(StageGenerate, "generate")
	var b strings.Builder
	for _, p := range pages {
		b.WriteString("<div class=\"page\">\n")
		for i, line := range p.Lines() {
			if i > 0 {
				b.WriteString("<br>\n")
			}
			b.WriteString(html.EscapeString(line))
		}
		fmt.Fprintf(&b, "\n</div>\n<div class=\"page-number\">- Page %d -</div>\n", p.Number)
	}
	return single("html", []byte(docmodel.HTMLPage(j.title, b.String(), pdfPageCSS))), nil
}

func pdfToText(ctx context.Context, c *Converter, j *job) (*output, error) {
	pages, err := extractPages(ctx, c, j)
	if err != nil {
		return nil, err
	}
	logUnparsed(c, j, pages)

	j.report(StageGenerate, "generate")
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "=== Page %d ===\n", p.Number)
		b.WriteString(p.Text)
		b.WriteString("\n\n")
	}
	return single("txt", []byte(b.String())), nil
}

// pdfToImages renders each page to PNG.
func pdfToImages(ctx context.Context, c *Converter, j *job) (*output, error) {
	j.report(StageConvert, "render")
	imgs, err := c.cfg.PDF.Rasterize(ctx, j.Data, j.pageProgress(StageConvert, StageGenerate, "render"))
	if err != nil {
		return nil, err
	}
	out := &output{prefix: "page"}
	for _, img := range imgs {
		out.units = append(out.units, unit{ext: "png", data: img})
	}
	j.report(StageGenerate, "package")
	return out, nil
}
