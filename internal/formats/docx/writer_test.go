package docx

import (
	"strings"
	"testing"

	"github.com/klytics/docconv/internal/archive"
)

func TestWriteDocumentValidZIP(t *testing.T) {
	doc := &Document{
		Nodes: []Node{
			{Type: NodeHeading, Text: "Heading One", Level: 1},
			{Type: NodeHeading, Text: "Heading Two", Level: 2},
			{Type: NodeParagraph, Text: "First paragraph content."},
		},
	}

	data, err := WriteDocument(doc)
	if err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}

	reader, err := archive.Open(data)
	if err != nil {
		t.Fatalf("output is not a valid ZIP: %v", err)
	}

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"docProps/core.xml",
		"word/document.xml",
		"word/numbering.xml",
		"word/_rels/document.xml.rels",
	} {
		if archive.Find(reader, name) == nil {
			t.Errorf("missing required file in .docx: %s", name)
		}
	}
}

func TestWriteDocumentWithFormattedRuns(t *testing.T) {
	doc := &Document{
		Nodes: []Node{
			{
				Type: NodeParagraph,
				Runs: []Run{
					{Text: "Hello "},
					{Text: "bold", Bold: true},
					{Text: " under", Underline: true},
					{Break: true},
					{Text: "a < b & c"},
				},
			},
		},
	}

	data, err := WriteDocument(doc)
	if err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parsed.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(parsed.Nodes))
	}

	n := parsed.Nodes[0]
	if n.Text != "Hello bold under\na < b & c" {
		t.Errorf("text = %q", n.Text)
	}
	if !n.Runs[1].Bold || !n.Runs[2].Underline || !n.Runs[3].Break {
		t.Errorf("runs = %+v", n.Runs)
	}
}

func TestWriteTableHeaderRoundTrip(t *testing.T) {
	doc := &Document{
		Nodes: []Node{{
			Type: NodeTable,
			Children: []Node{
				{Header: true, Children: []Node{{Text: "H1"}, {Text: "H2"}}},
				{Children: []Node{{Text: "1"}, {Text: "2"}}},
			},
		}},
	}

	data, err := WriteDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	rows := parsed.Nodes[0].Children
	if len(rows) != 2 || !rows[0].Header || rows[1].Header {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[1].Children[1].Text != "2" {
		t.Errorf("cell text = %q", rows[1].Children[1].Text)
	}
}

func TestWriteStripsControlCharacters(t *testing.T) {
	doc := &Document{Nodes: []Node{{Type: NodeParagraph, Text: "a\x00b\x0bc"}}}
	data, err := WriteDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Nodes[0].Text != "abc" {
		t.Errorf("text = %q", parsed.Nodes[0].Text)
	}
}

func TestWriteEmptyDocument(t *testing.T) {
	data, err := WriteDocument(&Document{})
	if err != nil {
		t.Fatalf("WriteDocument failed: %v", err)
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("empty document does not parse: %v", err)
	}
	if len(parsed.Nodes) != 0 {
		t.Errorf("expected no nodes, got %d", len(parsed.Nodes))
	}
}

func TestHTML(t *testing.T) {
	doc := &Document{
		Nodes: []Node{
			{Type: NodeHeading, Text: "Title", Level: 1},
			{Type: NodeParagraph, Runs: []Run{{Text: "x", Bold: true, Italic: true}, {Break: true}, {Image: true}, {Text: "go", Link: "https://go.dev"}}},
			{Type: NodeListItem, Text: "a", ListInfo: &ListInfo{}},
			{Type: NodeListItem, Text: "a.1", Level: 1, ListInfo: &ListInfo{Level: 1, Ordered: true}},
			{Type: NodeListItem, Text: "b", ListInfo: &ListInfo{}},
			{Type: NodeTable, Children: []Node{
				{Header: true, Children: []Node{{Text: "H"}}},
				{Children: []Node{{Text: "<v>"}}},
			}},
		},
	}

	out := doc.HTML()
	for _, want := range []string{
		"<h1>Title</h1>",
		"<strong><em>x</em></strong><br><img alt=\"\">",
		`<a href="https://go.dev">go</a>`,
		"<ul>\n<li>a<ol>\n<li>a.1</li>\n</ol>\n</li>\n<li>b</li>\n</ul>\n",
		"<tr><th>H</th></tr>",
		"<tr><td>&lt;v&gt;</td></tr>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q in:\n%s", want, out)
		}
	}
}
