package docmodel

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/klytics/docconv/internal/markup"
)

var (
	el  = markup.Element
	txt = markup.Text
)

func TestMapEndToEndParagraphAndTable(t *testing.T) {
	root := el("body",
		el("p", txt("Hello")),
		el("table",
			el("tr", el("th", txt("A")), el("th", txt("B"))),
			el("tr", el("td", txt("1")), el("td", txt("2"))),
		),
	)

	doc := Map(root)
	if len(doc.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(doc.Blocks))
	}

	p, ok := doc.Blocks[0].(*Paragraph)
	if !ok {
		t.Fatalf("block 0 is %s, want paragraph", doc.Blocks[0].Kind())
	}
	if got := InlineText(p.Inlines); got != "Hello" {
		t.Errorf("paragraph text = %q", got)
	}

	tbl, ok := doc.Blocks[1].(*Table)
	if !ok {
		t.Fatalf("block 1 is %s, want table", doc.Blocks[1].Kind())
	}
	if !tbl.Header {
		t.Error("expected header=true")
	}
	if len(tbl.Columns) != 2 {
		t.Errorf("expected 2 columns, got %d", len(tbl.Columns))
	}
	want := [][]string{{"A", "B"}, {"1", "2"}}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Errorf("rows = %v, want %v", tbl.Rows, want)
	}
}

func TestMapFromParsedHTML(t *testing.T) {
	root, err := markup.ParseRoot(`<p>Hello</p><table><tr><th>A</th><th>B</th></tr><tr><td>1</td><td>2</td></tr></table>`)
	if err != nil {
		t.Fatal(err)
	}
	doc := Map(root)
	if len(doc.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(doc.Blocks))
	}
	tbl := doc.Blocks[1].(*Table)
	if !tbl.Header || len(tbl.Rows) != 2 {
		t.Errorf("unexpected table: %+v", tbl)
	}
}

func TestModifierComposition(t *testing.T) {
	tests := []struct {
		name string
		node *markup.Node
		want Modifier
	}{
		{"bold in italic", el("i", el("b", txt("x"))), Bold | Italic},
		{"italic in bold", el("strong", el("em", txt("x"))), Bold | Italic},
		{"underline in bold in italic", el("em", el("b", el("u", txt("x")))), Bold | Italic | Underline},
		{"bold twice", el("b", el("strong", txt("x"))), Bold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Map(el("p", tt.node))
			p := doc.Blocks[0].(*Paragraph)
			if len(p.Inlines) != 1 {
				t.Fatalf("expected 1 inline, got %d", len(p.Inlines))
			}
			in := p.Inlines[0]
			if in.Text != "x" || in.Style != tt.want {
				t.Errorf("got %+v, want text x style %s", in, tt.want)
			}
		})
	}
}

func TestUnknownTagPassThrough(t *testing.T) {
	wrapped := Map(el("foo", el("p", txt("y"))))
	bare := Map(el("p", txt("y")))
	if !reflect.DeepEqual(wrapped, bare) {
		t.Errorf("wrapped = %+v, bare = %+v", wrapped.Blocks, bare.Blocks)
	}
}

func TestUnknownEmptyTagVanishes(t *testing.T) {
	doc := Map(el("body", el("span"), el("div", el("section")), el("p", txt("z"))))
	if len(doc.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(doc.Blocks))
	}
}

func TestTableWithoutHeader(t *testing.T) {
	doc := Map(el("table",
		el("tr", el("td", txt("1")), el("td", txt("2")), el("td", txt("3"))),
		el("tr", el("td", txt("4"))),
	))
	tbl := doc.Blocks[0].(*Table)
	if tbl.Header {
		t.Error("expected header=false")
	}
	if len(tbl.Columns) != 0 {
		t.Errorf("expected no column specs, got %d", len(tbl.Columns))
	}
	if tbl.ColumnCount() != 3 {
		t.Errorf("ColumnCount = %d, want 3", tbl.ColumnCount())
	}
}

func TestColumnCountCoversWideRows(t *testing.T) {
	doc := Map(el("table",
		el("tr", el("th", txt("A")), el("th", txt("B"))),
		el("tr", el("td", txt("1")), el("td", txt("2")), el("td", txt("3"))),
	))
	tbl := doc.Blocks[0].(*Table)
	if len(tbl.Columns) != 2 {
		t.Errorf("column specs = %d, want 2 (one per header cell)", len(tbl.Columns))
	}
	if tbl.ColumnCount() != 3 {
		t.Errorf("ColumnCount = %d, want 3", tbl.ColumnCount())
	}
}

func TestTableCellsFlattenFormatting(t *testing.T) {
	doc := Map(el("table",
		el("tbody",
			el("tr", el("th", el("b", txt("Na")), txt("me"))),
			el("tr", el("th", txt("row"), el("i", txt("!")))),
		),
	))
	tbl := doc.Blocks[0].(*Table)
	want := [][]string{{"Name"}, {"row!"}}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Errorf("rows = %v, want %v", tbl.Rows, want)
	}
	if len(tbl.Columns) != 1 || tbl.Columns[0].Weight != 1 {
		t.Errorf("columns = %+v", tbl.Columns)
	}
}

func TestEmptyTableVanishes(t *testing.T) {
	doc := Map(el("table", el("tbody")))
	if len(doc.Blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(doc.Blocks))
	}
}

func TestNestedLists(t *testing.T) {
	doc := Map(el("ul",
		el("li", txt("one")),
		el("li", txt("two"), el("ol", el("li", txt("a")), el("li", txt("b")))),
	))
	l := doc.Blocks[0].(*List)
	if l.Ordered {
		t.Error("expected unordered list")
	}
	if len(l.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(l.Items))
	}
	second := l.Items[1].Blocks
	if len(second) != 2 {
		t.Fatalf("expected paragraph + nested list, got %d blocks", len(second))
	}
	inner, ok := second[1].(*List)
	if !ok || !inner.Ordered || len(inner.Items) != 2 {
		t.Errorf("unexpected nested list: %+v", second[1])
	}
}

func TestListIgnoresWhitespaceBetweenItems(t *testing.T) {
	doc := Map(el("ol", txt("\n  "), el("li", txt("a")), txt("\n")))
	l := doc.Blocks[0].(*List)
	if len(l.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(l.Items))
	}
}

func TestHeadingsAndBreaks(t *testing.T) {
	doc := Map(el("body",
		el("h1", txt("Title")),
		el("h2", txt("Sub")),
		el("h3", txt("Minor")),
		el("p", txt("line1"), el("br"), txt("line2")),
		el("p", el("img")),
	))
	if len(doc.Blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(doc.Blocks))
	}
	for i, want := range []float64{24, 20, 16} {
		h := doc.Blocks[i].(*Heading)
		if h.Level != i+1 || h.FontSize() != want {
			t.Errorf("heading %d: level %d size %v", i, h.Level, h.FontSize())
		}
	}
	p := doc.Blocks[3].(*Paragraph)
	if len(p.Inlines) != 3 || !p.Inlines[1].Break {
		t.Errorf("expected break inline, got %+v", p.Inlines)
	}
	img := doc.Blocks[4].(*Paragraph)
	if !img.Inlines[0].Placeholder || img.Inlines[0].Text != ImagePlaceholder {
		t.Errorf("expected image placeholder, got %+v", img.Inlines)
	}
}

func TestOrderPreserved(t *testing.T) {
	var children []*markup.Node
	var want []string
	for i := 0; i < 20; i++ {
		s := strings.Repeat("x", i+1)
		want = append(want, s)
		if i%2 == 0 {
			children = append(children, el("p", txt(s)))
		} else {
			children = append(children, el("div", el("h2", txt(s))))
		}
	}
	doc := Map(el("body", children...))
	var got []string
	for _, b := range doc.Blocks {
		switch v := b.(type) {
		case *Paragraph:
			got = append(got, InlineText(v.Inlines))
		case *Heading:
			got = append(got, InlineText(v.Inlines))
		}
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order changed:\n got %v\nwant %v", got, want)
	}
}

func TestInlineOrderInsideParagraph(t *testing.T) {
	doc := Map(el("p", txt("a"), el("b", txt("b")), el("span", txt("c")), el("u", txt("d"))))
	p := doc.Blocks[0].(*Paragraph)
	if got := InlineText(p.Inlines); got != "abcd" {
		t.Errorf("inline order = %q", got)
	}
}

func TestBlockInsideParagraphSplits(t *testing.T) {
	doc := Map(el("p", txt("before"), el("table", el("tr", el("td", txt("c")))), txt("after")))
	if len(doc.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(doc.Blocks))
	}
	if doc.Blocks[1].Kind() != KindTable {
		t.Errorf("middle block = %s", doc.Blocks[1].Kind())
	}
}

func TestSplitParagraphDropsWhitespaceRuns(t *testing.T) {
	doc := Map(el("p", txt("x"), el("ul", el("li", txt("y"))), txt(" \n ")))
	if len(doc.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(doc.Blocks))
	}
	if doc.Blocks[0].Kind() != KindParagraph || doc.Blocks[1].Kind() != KindList {
		t.Errorf("blocks = %s, %s", doc.Blocks[0].Kind(), doc.Blocks[1].Kind())
	}
}

func TestStyleAppliesToNestedBlocks(t *testing.T) {
	doc := Map(el("b", el("p", txt("x")), el("ul", el("li", txt("y")))))
	p := doc.Blocks[0].(*Paragraph)
	if !p.Inlines[0].Style.Has(Bold) {
		t.Error("expected bold paragraph run")
	}
	l := doc.Blocks[1].(*List)
	item := l.Items[0].Blocks[0].(*Paragraph)
	if !item.Inlines[0].Style.Has(Bold) {
		t.Error("expected bold list item run")
	}
}

func TestTopLevelWhitespaceDropped(t *testing.T) {
	doc := Map(el("body", txt("\n"), el("p", txt("a")), txt("  \n "), el("p", txt("b"))))
	if len(doc.Blocks) != 2 {
		t.Errorf("expected 2 blocks, got %d", len(doc.Blocks))
	}
}

func TestMapNil(t *testing.T) {
	doc := Map(nil)
	if doc == nil || len(doc.Blocks) != 0 {
		t.Errorf("expected empty document, got %+v", doc)
	}
	if doc.Style != DefaultStyle {
		t.Errorf("style = %+v", doc.Style)
	}
}

func TestOptions(t *testing.T) {
	doc := Map(el("p", txt("x")), WithTitle("Report"), WithStyle(TextStyle{Size: 10}))
	if doc.Title != "Report" {
		t.Errorf("title = %q", doc.Title)
	}
	if doc.Style.Font != DefaultStyle.Font || doc.Style.Size != 10 {
		t.Errorf("style = %+v", doc.Style)
	}
}

var vocabulary = []string{
	"p", "h1", "h2", "h3", "b", "strong", "i", "em", "u", "br", "table", "tr",
	"th", "td", "ul", "ol", "li", "img", "foo", "span", "div", "tbody", "section",
}

func randomTree(r *rand.Rand, depth int) *markup.Node {
	if depth == 0 || r.Intn(4) == 0 {
		return txt(strings.Repeat("w", r.Intn(3)))
	}
	n := el(vocabulary[r.Intn(len(vocabulary))])
	for i := r.Intn(4); i > 0; i-- {
		n.Children = append(n.Children, randomTree(r, depth-1))
	}
	return n
}

func TestMapIsTotal(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		root := randomTree(r, 6)
		doc := Map(root)
		if doc == nil {
			t.Fatal("Map returned nil")
		}
		for _, b := range doc.Blocks {
			if b == nil {
				t.Fatal("nil block in output")
			}
			checkInvariants(t, b)
		}
	}
}

func checkInvariants(t *testing.T, b Block) {
	t.Helper()
	switch v := b.(type) {
	case *Heading:
		if v.Level < 1 || v.Level > 3 {
			t.Fatalf("heading level %d out of range", v.Level)
		}
	case *List:
		for _, item := range v.Items {
			for _, inner := range item.Blocks {
				checkInvariants(t, inner)
			}
		}
	case *Table:
		if len(v.Rows) == 0 {
			t.Fatal("table without rows")
		}
		if v.Header && len(v.Columns) != len(v.Rows[0]) {
			t.Fatalf("header table has %d columns for %d header cells", len(v.Columns), len(v.Rows[0]))
		}
	}
}
