package docx

import (
	"fmt"
	"html"
	"strings"
)

// HTML returns the document body as HTML markup. Images are emitted as
// empty <img> elements; their bytes are never embedded.
func (d *Document) HTML() string {
	var b strings.Builder
	lists := &listWriter{b: &b}

	for _, n := range d.Nodes {
		if n.Type == NodeListItem {
			lists.item(n)
			continue
		}
		lists.close()

		switch n.Type {
		case NodeHeading:
			level := n.Level
			if level < 1 {
				level = 1
			}
			if level > 6 {
				level = 6
			}
			fmt.Fprintf(&b, "<h%d>", level)
			writeRunsHTML(&b, n)
			fmt.Fprintf(&b, "</h%d>\n", level)
		case NodeParagraph:
			b.WriteString("<p>")
			writeRunsHTML(&b, n)
			b.WriteString("</p>\n")
		case NodeTable:
			writeTableHTML(&b, n)
		}
	}
	lists.close()

	return b.String()
}

func writeTableHTML(b *strings.Builder, n Node) {
	if len(n.Children) == 0 {
		return
	}
	b.WriteString("<table>\n")
	for _, row := range n.Children {
		cell := "td"
		if row.Header {
			cell = "th"
		}
		b.WriteString("<tr>")
		for _, c := range row.Children {
			text := html.EscapeString(c.Text)
			text = strings.ReplaceAll(text, "\n", "<br>")
			fmt.Fprintf(b, "<%s>%s</%s>", cell, text, cell)
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n")
}

func writeRunsHTML(b *strings.Builder, n Node) {
	if len(n.Runs) == 0 {
		b.WriteString(html.EscapeString(n.Text))
		return
	}
	for _, r := range n.Runs {
		switch {
		case r.Break, r.PageBreak:
			b.WriteString("<br>")
			continue
		case r.Image:
			b.WriteString(`<img alt="">`)
			continue
		}

		text := html.EscapeString(r.Text)
		if r.Underline {
			text = "<u>" + text + "</u>"
		}
		if r.Italic {
			text = "<em>" + text + "</em>"
		}
		if r.Bold {
			text = "<strong>" + text + "</strong>"
		}
		if r.Link != "" {
			text = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(r.Link), text)
		}
		b.WriteString(text)
	}
}

// listWriter turns flat list-item paragraphs into nested <ul>/<ol> markup.
type listWriter struct {
	b        *strings.Builder
	tags     []string
	openItem []bool
}

func listTag(n Node) string {
	if n.ListInfo != nil && n.ListInfo.Ordered {
		return "ol"
	}
	return "ul"
}

func (w *listWriter) item(n Node) {
	depth := n.Level + 1
	if depth < 1 {
		depth = 1
	}
	tag := listTag(n)

	for len(w.tags) > depth {
		w.pop()
	}
	if len(w.tags) == depth {
		if w.openItem[depth-1] {
			w.b.WriteString("</li>\n")
			w.openItem[depth-1] = false
		}
		if w.tags[depth-1] != tag {
			w.pop()
		}
	}
	for len(w.tags) < depth {
		if k := len(w.tags); k > 0 && !w.openItem[k-1] {
			w.b.WriteString("<li>")
			w.openItem[k-1] = true
		}
		fmt.Fprintf(w.b, "<%s>\n", tag)
		w.tags = append(w.tags, tag)
		w.openItem = append(w.openItem, false)
	}

	w.b.WriteString("<li>")
	writeRunsHTML(w.b, n)
	w.openItem[depth-1] = true
}

func (w *listWriter) pop() {
	k := len(w.tags) - 1
	if w.openItem[k] {
		w.b.WriteString("</li>\n")
	}
	fmt.Fprintf(w.b, "</%s>\n", w.tags[k])
	w.tags = w.tags[:k]
	w.openItem = w.openItem[:k]
}

func (w *listWriter) close() {
	for len(w.tags) > 0 {
		w.pop()
	}
}
