package docmodel

import (
	"strings"

	"github.com/klytics/docconv/internal/markup"
)

// Option configures a Document built by Map.
type Option func(*Document)

// WithTitle sets the document title used by generators for metadata.
func WithTitle(title string) Option {
	return func(d *Document) { d.Title = title }
}

// WithStyle overrides the default text style.
func WithStyle(s TextStyle) Option {
	return func(d *Document) {
		if s.Font != "" {
			d.Style.Font = s.Font
		}
		if s.Size > 0 {
			d.Style.Size = s.Size
		}
	}
}

// Map walks a markup tree and builds the print document model. It never
// fails: unknown elements contribute their children's content or nothing.
func Map(root *markup.Node, opts ...Option) *Document {
	if root == nil {
		return MapNodes(nil, opts...)
	}
	return MapNodes([]*markup.Node{root}, opts...)
}

// MapNodes maps a sequence of sibling nodes, as returned by markup.Parse.
func MapNodes(nodes []*markup.Node, opts ...Option) *Document {
	doc := &Document{Style: DefaultStyle}
	for _, o := range opts {
		o(doc)
	}
	doc.Blocks = toBlocks(mapAll(nodes))
	return doc
}

// piece is one mapped result: a block when block is non-nil, otherwise an
// inline run.
type piece struct {
	block  Block
	inline Inline
}

func inlinePiece(in Inline) piece { return piece{inline: in} }
func blockPiece(b Block) piece    { return piece{block: b} }

func mapAll(nodes []*markup.Node) []piece {
	var out []piece
	for _, n := range nodes {
		out = append(out, mapNode(n)...)
	}
	return out
}

func mapNode(n *markup.Node) []piece {
	if n == nil {
		return nil
	}
	if n.IsText() {
		if n.Text == "" {
			return nil
		}
		return []piece{inlinePiece(Inline{Text: n.Text})}
	}

	switch n.Tag {
	case markup.TagParagraph:
		return wrapInlines(mapAll(n.Children), true, func(in []Inline) Block {
			return &Paragraph{Inlines: in, Margin: paragraphMargin}
		})
	case markup.TagHeading1, markup.TagHeading2, markup.TagHeading3:
		level := int(n.Tag-markup.TagHeading1) + 1
		return wrapInlines(mapAll(n.Children), true, func(in []Inline) Block {
			return &Heading{Level: level, Inlines: in, Margin: headingStyles[level].margin}
		})
	case markup.TagBold:
		return applyStyle(mapAll(n.Children), Bold)
	case markup.TagItalic:
		return applyStyle(mapAll(n.Children), Italic)
	case markup.TagUnderline:
		return applyStyle(mapAll(n.Children), Underline)
	case markup.TagBreak:
		return []piece{inlinePiece(Inline{Break: true})}
	case markup.TagImage:
		return []piece{inlinePiece(Inline{Text: ImagePlaceholder, Placeholder: true})}
	case markup.TagTable:
		if t := mapTable(n); t != nil {
			return []piece{blockPiece(t)}
		}
		return nil
	case markup.TagUnorderedList, markup.TagOrderedList:
		if l := mapList(n, n.Tag == markup.TagOrderedList); l != nil {
			return []piece{blockPiece(l)}
		}
		return nil
	default:
		// Unknown elements, and structural tags found outside their
		// container, pass their children through.
		return mapAll(n.Children)
	}
}

// wrapInlines wraps runs of consecutive inlines with wrap and passes nested
// blocks through in place. When keepEmpty is set and pieces holds no block,
// a single block is produced even for zero inlines.
func wrapInlines(pieces []piece, keepEmpty bool, wrap func([]Inline) Block) []piece {
	hasBlock := false
	for _, p := range pieces {
		if p.block != nil {
			hasBlock = true
			break
		}
	}
	if !hasBlock {
		if len(pieces) == 0 && !keepEmpty {
			return nil
		}
		return []piece{blockPiece(wrap(inlinesOf(pieces)))}
	}

	var out []piece
	var run []Inline
	flush := func() {
		if len(run) > 0 && !blankRun(run) {
			out = append(out, blockPiece(wrap(run)))
		}
		run = nil
	}
	for _, p := range pieces {
		if p.block != nil {
			flush()
			out = append(out, p)
			continue
		}
		run = append(run, p.inline)
	}
	flush()
	return out
}

func inlinesOf(pieces []piece) []Inline {
	out := make([]Inline, 0, len(pieces))
	for _, p := range pieces {
		if p.block == nil {
			out = append(out, p.inline)
		}
	}
	return out
}

// toBlocks turns a mixed sequence into blocks, grouping consecutive inlines
// into implicit paragraphs. Groups holding only whitespace text are dropped.
func toBlocks(pieces []piece) []Block {
	var out []Block
	var run []Inline
	flush := func() {
		if len(run) > 0 && !blankRun(run) {
			out = append(out, &Paragraph{Inlines: run, Margin: paragraphMargin})
		}
		run = nil
	}
	for _, p := range pieces {
		if p.block != nil {
			flush()
			out = append(out, p.block)
			continue
		}
		run = append(run, p.inline)
	}
	flush()
	return out
}

func blankRun(run []Inline) bool {
	for _, in := range run {
		if in.Break || in.Placeholder || strings.TrimSpace(in.Text) != "" {
			return false
		}
	}
	return true
}

// applyStyle ORs mod into every inline reachable from pieces. Pieces are
// freshly built by the current traversal, so they are updated in place.
func applyStyle(pieces []piece, mod Modifier) []piece {
	for i := range pieces {
		if pieces[i].block == nil {
			pieces[i].inline.Style |= mod
			continue
		}
		styleBlock(pieces[i].block, mod)
	}
	return pieces
}

func styleBlock(b Block, mod Modifier) {
	switch v := b.(type) {
	case *Paragraph:
		styleInlines(v.Inlines, mod)
	case *Heading:
		styleInlines(v.Inlines, mod)
	case *List:
		for _, item := range v.Items {
			for _, inner := range item.Blocks {
				styleBlock(inner, mod)
			}
		}
	}
}

func styleInlines(in []Inline, mod Modifier) {
	for i := range in {
		in[i].Style |= mod
	}
}

func mapList(n *markup.Node, ordered bool) *List {
	l := &List{Ordered: ordered, Margin: blockMargin}
	for _, c := range n.Children {
		isItem := !c.IsText() && c.Tag == markup.TagListItem
		var blocks []Block
		if isItem {
			blocks = toBlocks(mapAll(c.Children))
		} else {
			blocks = toBlocks(mapNode(c))
		}
		// Whitespace between items maps to nothing; stray content becomes
		// its own item.
		if isItem || len(blocks) > 0 {
			l.Items = append(l.Items, ListItem{Blocks: blocks})
		}
	}
	if len(l.Items) == 0 {
		return nil
	}
	return l
}

// mapTable flattens a table element into plain-text rows. The first row
// decides the header flag: any header cell in it marks the table as having
// a header, with one equal-width column per header-row cell.
func mapTable(n *markup.Node) *Table {
	rows := collect(n, markup.TagRow, markup.TagTable)
	if len(rows) == 0 {
		return nil
	}

	t := &Table{Margin: blockMargin}
	for i, row := range rows {
		cells := collectCells(row)
		if len(cells) == 0 {
			continue
		}
		if i == 0 {
			for _, c := range cells {
				if c.Tag == markup.TagHeaderCell {
					t.Header = true
					break
				}
			}
			if t.Header {
				t.Columns = make([]Column, len(cells))
				for j := range t.Columns {
					t.Columns[j] = Column{Weight: 1}
				}
			}
		}
		texts := make([]string, len(cells))
		for j, c := range cells {
			texts[j] = c.TextContent()
		}
		t.Rows = append(t.Rows, texts)
	}
	if len(t.Rows) == 0 {
		return nil
	}
	return t
}

// collect returns descendants of root carrying tag, without descending into
// matches or into nested elements carrying stop.
func collect(root *markup.Node, tag, stop markup.Tag) []*markup.Node {
	var out []*markup.Node
	for _, c := range root.Children {
		c.Walk(func(n *markup.Node) bool {
			if n.IsText() {
				return false
			}
			if n.Tag == tag {
				out = append(out, n)
				return false
			}
			return n.Tag != stop
		})
	}
	return out
}

func collectCells(row *markup.Node) []*markup.Node {
	var out []*markup.Node
	for _, c := range row.Children {
		c.Walk(func(n *markup.Node) bool {
			if n.IsText() {
				return false
			}
			switch n.Tag {
			case markup.TagCell, markup.TagHeaderCell:
				out = append(out, n)
				return false
			case markup.TagTable, markup.TagRow:
				return false
			}
			return true
		})
	}
	return out
}
