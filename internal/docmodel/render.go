package docmodel

import (
	"fmt"
	"html"
	"strings"
)

// PageCSS is the stylesheet embedded in generated HTML pages.
const PageCSS = `body { font-family: "Noto Sans", Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 40px; line-height: 1.6; color: #333; }
    h1, h2, h3 { color: #222; margin: 20px 0 10px; }
    p { margin: 10px 0; }
    table { border-collapse: collapse; width: 100%; margin: 10px 0; }
    th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
    th { background: #f5f5f5; font-weight: bold; }
    ul, ol { margin: 10px 0; padding-left: 30px; }`

// HTMLPage wraps body markup in a self-contained HTML5 document.
func HTMLPage(title, body, css string) string {
	if title == "" {
		title = "Document"
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n  <meta charset=\"UTF-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	fmt.Fprintf(&b, "  <title>%s</title>\n", html.EscapeString(title))
	if css != "" {
		fmt.Fprintf(&b, "  <style>\n    %s\n  </style>\n", css)
	}
	b.WriteString("</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// RenderHTML renders the model as a complete HTML page.
func RenderHTML(doc *Document) string {
	return HTMLPage(doc.Title, RenderBody(doc), PageCSS)
}

// RenderBody renders the model's blocks as HTML body markup.
func RenderBody(doc *Document) string {
	var b strings.Builder
	for _, blk := range doc.Blocks {
		writeBlockHTML(&b, blk)
	}
	return b.String()
}

func writeBlockHTML(b *strings.Builder, blk Block) {
	switch v := blk.(type) {
	case *Paragraph:
		b.WriteString("<p>")
		writeInlinesHTML(b, v.Inlines)
		b.WriteString("</p>\n")
	case *Heading:
		level := clampLevel(v.Level)
		fmt.Fprintf(b, "<h%d>", level)
		writeInlinesHTML(b, v.Inlines)
		fmt.Fprintf(b, "</h%d>\n", level)
	case *List:
		tag := "ul"
		if v.Ordered {
			tag = "ol"
		}
		fmt.Fprintf(b, "<%s>\n", tag)
		for _, item := range v.Items {
			b.WriteString("<li>")
			for _, inner := range item.Blocks {
				writeBlockHTML(b, inner)
			}
			b.WriteString("</li>\n")
		}
		fmt.Fprintf(b, "</%s>\n", tag)
	case *Table:
		b.WriteString("<table>\n")
		for i, row := range v.Rows {
			cell := "td"
			if i == 0 && v.Header {
				cell = "th"
			}
			b.WriteString("<tr>")
			for _, c := range row {
				fmt.Fprintf(b, "<%s>%s</%s>", cell, html.EscapeString(c), cell)
			}
			b.WriteString("</tr>\n")
		}
		b.WriteString("</table>\n")
	}
}

func writeInlinesHTML(b *strings.Builder, inlines []Inline) {
	for _, in := range inlines {
		if in.Break {
			b.WriteString("<br>")
			continue
		}
		text := html.EscapeString(in.Text)
		if in.Placeholder {
			text = `<span class="image">` + text + `</span>`
		}
		if in.Style.Has(Underline) {
			text = "<u>" + text + "</u>"
		}
		if in.Style.Has(Italic) {
			text = "<em>" + text + "</em>"
		}
		if in.Style.Has(Bold) {
			text = "<strong>" + text + "</strong>"
		}
		b.WriteString(text)
	}
}

// PlainText renders the model as plain text: blocks separated by blank
// lines, list items prefixed with bullets or numbers, table cells joined by
// tabs.
func PlainText(doc *Document) string {
	var b strings.Builder
	for i, blk := range doc.Blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		writeBlockText(&b, blk, 0)
	}
	return b.String()
}

func writeBlockText(b *strings.Builder, blk Block, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := blk.(type) {
	case *Paragraph:
		b.WriteString(indent)
		b.WriteString(InlineText(v.Inlines))
		b.WriteString("\n")
	case *Heading:
		b.WriteString(InlineText(v.Inlines))
		b.WriteString("\n")
	case *List:
		for i, item := range v.Items {
			marker := "- "
			if v.Ordered {
				marker = fmt.Sprintf("%d. ", i+1)
			}
			b.WriteString(indent)
			b.WriteString(marker)
			for j, inner := range item.Blocks {
				if p, ok := inner.(*Paragraph); ok && j == 0 {
					b.WriteString(InlineText(p.Inlines))
					b.WriteString("\n")
					continue
				}
				writeBlockText(b, inner, depth+1)
			}
			if len(item.Blocks) == 0 {
				b.WriteString("\n")
			}
		}
	case *Table:
		for _, row := range v.Rows {
			b.WriteString(indent)
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
	}
}

// InlineText concatenates the text of inline runs, turning breaks into
// newlines.
func InlineText(inlines []Inline) string {
	var b strings.Builder
	for _, in := range inlines {
		if in.Break {
			b.WriteString("\n")
			continue
		}
		b.WriteString(in.Text)
	}
	return b.String()
}
