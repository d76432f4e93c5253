// Package markup holds the semantic node tree produced by parsing a
// word-processing document into HTML-like markup.
package markup

import (
	"strings"
)

// Tag is the closed set of element kinds the document mapper understands.
// Every other element name resolves to TagUnknown.
type Tag int

const (
	// TagUnknown is any element without a dedicated mapping.
	TagUnknown Tag = iota
	TagParagraph
	TagHeading1
	TagHeading2
	TagHeading3
	TagBold
	TagItalic
	TagUnderline
	TagBreak
	TagTable
	TagRow
	TagHeaderCell
	TagCell
	TagUnorderedList
	TagOrderedList
	TagListItem
	TagImage
)

var tagNames = map[string]Tag{
	"p":      TagParagraph,
	"h1":     TagHeading1,
	"h2":     TagHeading2,
	"h3":     TagHeading3,
	"b":      TagBold,
	"strong": TagBold,
	"i":      TagItalic,
	"em":     TagItalic,
	"u":      TagUnderline,
	"br":     TagBreak,
	"table":  TagTable,
	"tr":     TagRow,
	"th":     TagHeaderCell,
	"td":     TagCell,
	"ul":     TagUnorderedList,
	"ol":     TagOrderedList,
	"li":     TagListItem,
	"img":    TagImage,
}

// LookupTag resolves an element name (case-insensitive) to its Tag.
func LookupTag(name string) Tag {
	if t, ok := tagNames[strings.ToLower(name)]; ok {
		return t
	}
	return TagUnknown
}

// NodeType distinguishes text nodes from element nodes.
type NodeType int

const (
	// TextNode holds a string.
	TextNode NodeType = iota
	// ElementNode holds a tag name and ordered children.
	ElementNode
)

// Node is one node of a markup tree.
type Node struct {
	Type     NodeType
	Text     string // text nodes only
	Name     string // element name as written, lower-cased
	Tag      Tag
	Children []*Node
}

// Text creates a text node.
func Text(s string) *Node {
	return &Node{Type: TextNode, Text: s}
}

// Element creates an element node, resolving its Tag from the name.
func Element(name string, children ...*Node) *Node {
	name = strings.ToLower(name)
	return &Node{
		Type:     ElementNode,
		Name:     name,
		Tag:      LookupTag(name),
		Children: children,
	}
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool {
	return n != nil && n.Type == TextNode
}

// TextContent returns the concatenated text of n and all its descendants.
func (n *Node) TextContent() string {
	if n == nil {
		return ""
	}
	if n.Type == TextNode {
		return n.Text
	}
	var b strings.Builder
	writeText(&b, n)
	return b.String()
}

func writeText(b *strings.Builder, n *Node) {
	for _, c := range n.Children {
		if c.Type == TextNode {
			b.WriteString(c.Text)
			continue
		}
		writeText(b, c)
	}
}

// Walk calls fn for n and every descendant in document order. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
