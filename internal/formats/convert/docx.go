package convert

import (
	"context"
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/klytics/docconv/internal/docmodel"
	"github.com/klytics/docconv/internal/formats/docx"
	"github.com/klytics/docconv/internal/markup"
	"github.com/klytics/docconv/internal/pdfgen"
)

// sanitizer strips anything outside formatting markup from generated
// document HTML; hyperlink targets come from the document itself.
var sanitizer = bluemonday.UGCPolicy()

func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

func parseDocx(ctx context.Context, c *Converter, j *job) (*docx.Document, error) {
	j.report(StageParse, "parse")
	doc, err := parse(ctx, c, func(context.Context) (*docx.Document, error) {
		return docx.Parse(j.Data)
	})
	if err != nil {
		return nil, err
	}
	if doc.Metadata.Title != "" {
		j.title = doc.Metadata.Title
	}
	return doc, nil
}

// docxBody returns the document's sanitized HTML body fragment.
func docxBody(doc *docx.Document) string {
	return sanitizer.Sanitize(doc.HTML())
}

func docxToPDF(ctx context.Context, c *Converter, j *job) (*output, error) {
	doc, err := parseDocx(ctx, c, j)
	if err != nil {
		return nil, err
	}

	j.report(StageConvert, "map")
	nodes, err := markup.Parse(docxBody(doc))
	if err != nil {
		return nil, fmt.Errorf("could not read document markup: %w", err)
	}
	model := docmodel.MapNodes(nodes, docmodel.WithTitle(j.title), docmodel.WithStyle(c.cfg.Style))

	j.report(StageGenerate, "generate")
	pdf, err := c.cfg.Engine.Document(ctx, model, pdfgen.Options{})
	if err != nil {
		return nil, err
	}
	return single("pdf", pdf), nil
}

func docxToHTML(ctx context.Context, c *Converter, j *job) (*output, error) {
	doc, err := parseDocx(ctx, c, j)
	if err != nil {
		return nil, err
	}
	j.report(StageGenerate, "generate")
	page := docmodel.HTMLPage(j.title, docxBody(doc), docmodel.PageCSS)
	return single("html", []byte(page)), nil
}

func docxToText(ctx context.Context, c *Converter, j *job) (*output, error) {
	doc, err := parseDocx(ctx, c, j)
	if err != nil {
		return nil, err
	}
	j.report(StageGenerate, "generate")
	return single("txt", []byte(doc.PlainText())), nil
}

func docxToMarkdown(ctx context.Context, c *Converter, j *job) (*output, error) {
	doc, err := parseDocx(ctx, c, j)
	if err != nil {
		return nil, err
	}
	j.report(StageGenerate, "generate")
	md, err := newMarkdownConverter().ConvertString(docxBody(doc))
	if err != nil {
		return nil, fmt.Errorf("could not render Markdown: %w", err)
	}
	return single("md", []byte(md+"\n")), nil
}
