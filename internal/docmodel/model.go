// Package docmodel defines the print document model: a format-agnostic tree
// of blocks and inline runs that PDF and HTML generators consume.
//
// A Document is built once by Map from a markup tree and is not modified
// afterwards. Generators read it; nothing writes to it.
package docmodel

// Modifier is a set of inline text styles.
type Modifier uint8

const (
	// Bold renders the run in a bold face.
	Bold Modifier = 1 << iota
	// Italic renders the run in an italic face.
	Italic
	// Underline draws a line under the run.
	Underline
)

// Has reports whether every style in m2 is set in m.
func (m Modifier) Has(m2 Modifier) bool { return m&m2 == m2 }

// String returns the gofpdf-style style string ("B", "I", "U" combined).
func (m Modifier) String() string {
	s := ""
	if m.Has(Bold) {
		s += "B"
	}
	if m.Has(Italic) {
		s += "I"
	}
	if m.Has(Underline) {
		s += "U"
	}
	return s
}

// ImagePlaceholder is the text shown in place of an embedded image.
const ImagePlaceholder = "[image]"

// Inline is a run of text inside a paragraph or heading.
type Inline struct {
	Text  string
	Style Modifier
	// Break forces a new line without starting a new block. Text is empty.
	Break bool
	// Placeholder marks the fixed text standing in for an image.
	Placeholder bool
}

// Margin is vertical spacing around a block, in points.
type Margin struct {
	Top    float64
	Bottom float64
}

// BlockKind identifies the concrete type of a Block.
type BlockKind int

const (
	KindParagraph BlockKind = iota
	KindHeading
	KindList
	KindTable
)

func (k BlockKind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// Block is a top-level structural unit. The set of implementations is
// closed: *Paragraph, *Heading, *List and *Table.
type Block interface {
	Kind() BlockKind
	block()
}

// Paragraph holds inline runs.
type Paragraph struct {
	Inlines []Inline
	Margin  Margin
}

// Heading holds inline runs at a level between 1 and 3.
type Heading struct {
	Level   int
	Inlines []Inline
	Margin  Margin
}

// FontSize returns the fixed font size for the heading level.
func (h *Heading) FontSize() float64 {
	return headingStyles[clampLevel(h.Level)].size
}

// List is an ordered or unordered sequence of items.
type List struct {
	Ordered bool
	Items   []ListItem
	Margin  Margin
}

// ListItem holds blocks, so lists can nest.
type ListItem struct {
	Blocks []Block
}

// Column is a relative column width. Equal weights split the usable width
// evenly.
type Column struct {
	Weight float64
}

// Table is a grid of plain-text cells. When Header is set, Rows[0] is the
// header row.
type Table struct {
	Header  bool
	Columns []Column
	Rows    [][]string
	Margin  Margin
}

// ColumnCount returns the number of columns to lay out: the column specs or
// the widest row, whichever is larger. Columns past the specs get weight 1.
func (t *Table) ColumnCount() int {
	n := len(t.Columns)
	for _, r := range t.Rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

func (*Paragraph) Kind() BlockKind { return KindParagraph }
func (*Heading) Kind() BlockKind   { return KindHeading }
func (*List) Kind() BlockKind      { return KindList }
func (*Table) Kind() BlockKind     { return KindTable }

func (*Paragraph) block() {}
func (*Heading) block()   {}
func (*List) block()      {}
func (*Table) block()     {}

// TextStyle is the document's default text style.
type TextStyle struct {
	Font string
	Size float64
}

// DefaultStyle is used when a Document is built without an explicit style.
var DefaultStyle = TextStyle{Font: "Helvetica", Size: 12}

// Document is the root of the print document model.
type Document struct {
	Title  string
	Blocks []Block
	Style  TextStyle
}

type headingStyle struct {
	size   float64
	margin Margin
}

var headingStyles = map[int]headingStyle{
	1: {size: 24, margin: Margin{Top: 10, Bottom: 5}},
	2: {size: 20, margin: Margin{Top: 8, Bottom: 4}},
	3: {size: 16, margin: Margin{Top: 6, Bottom: 3}},
}

var (
	paragraphMargin = Margin{Top: 5, Bottom: 5}
	blockMargin     = Margin{Top: 5, Bottom: 5}
)

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 3 {
		return 3
	}
	return level
}

// NewTable returns a table over rows with one equal-width column per cell
// of the widest row. Rows are padded to that width.
func NewTable(rows [][]string, header bool) *Table {
	t := &Table{Header: header, Rows: rows, Margin: blockMargin}
	n := t.ColumnCount()
	if n == 0 {
		return nil
	}
	t.Columns = make([]Column, n)
	t.Rows = make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, n)
		copy(row, r)
		t.Rows[i] = row
	}
	for i := range t.Columns {
		t.Columns[i] = Column{Weight: 1}
	}
	return t
}
