package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses an HTML body fragment into markup nodes. The returned slice
// holds the top-level nodes in document order. Comments and doctypes are
// dropped.
func Parse(src string) ([]*Node, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, fmt.Errorf("could not parse document markup: %w", err)
	}

	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if c := convert(n); c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// ParseRoot parses src and wraps the top-level nodes in a synthetic root
// element, which the mapper treats as a transparent container.
func ParseRoot(src string) (*Node, error) {
	nodes, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Element("body", nodes...), nil
}

func convert(n *html.Node) *Node {
	switch n.Type {
	case html.TextNode:
		return Text(n.Data)
	case html.ElementNode:
		el := Element(n.Data)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := convert(c); child != nil {
				el.Children = append(el.Children, child)
			}
		}
		return el
	default:
		return nil
	}
}
