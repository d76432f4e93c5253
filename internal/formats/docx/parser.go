// Package docx provides parsing and writing capabilities for .docx (OOXML) files.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klytics/docconv/internal/archive"
)

// NodeType identifies the kind of content node in a document.
type NodeType int

const (
	// NodeParagraph represents a text paragraph.
	NodeParagraph NodeType = iota
	// NodeHeading represents a heading paragraph with a level (1-9).
	NodeHeading
	// NodeTable represents a table with rows and cells.
	NodeTable
	// NodeListItem represents a list item (bulleted or numbered).
	NodeListItem
)

// Node represents a single structural element in a document.
type Node struct {
	Type     NodeType  `json:"type"`
	Text     string    `json:"text"`
	Level    int       `json:"level,omitempty"`    // Heading level (1-9) or list nesting level
	Style    string    `json:"style,omitempty"`    // Original OOXML style name
	Header   bool      `json:"header,omitempty"`   // Table rows: repeated header row
	Children []Node    `json:"children,omitempty"` // For tables: rows containing cells
	Runs     []Run     `json:"runs,omitempty"`
	ListInfo *ListInfo `json:"listInfo,omitempty"`
}

// Run represents a contiguous run of text with consistent formatting, or a
// break or image marker.
type Run struct {
	Text      string `json:"text,omitempty"`
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Break     bool   `json:"break,omitempty"`
	PageBreak bool   `json:"pageBreak,omitempty"`
	Image     bool   `json:"image,omitempty"`
	Link      string `json:"link,omitempty"`
}

// ListInfo holds numbering details for list items.
type ListInfo struct {
	NumID   string `json:"numId"`
	Level   int    `json:"level"`
	Ordered bool   `json:"ordered,omitempty"`
}

// Metadata holds document-level metadata extracted from core.xml.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Description string `json:"description,omitempty"`
	Created     string `json:"created,omitempty"`
	Modified    string `json:"modified,omitempty"`
}

// Document is the top-level parsed representation of a .docx file.
type Document struct {
	Nodes    []Node   `json:"nodes"`
	Metadata Metadata `json:"metadata"`
}

type xmlParagraphProps struct {
	Style   xmlStyleVal `xml:"pStyle"`
	NumPr   xmlNumPr    `xml:"numPr"`
	Heading xmlStyleVal `xml:"outlineLvl"`
}

type xmlStyleVal struct {
	Val string `xml:"val,attr"`
}

type xmlNumPr struct {
	ILevel xmlStyleVal `xml:"ilvl"`
	NumID  xmlStyleVal `xml:"numId"`
}

// xmlToggle is an OOXML on/off property such as <w:b/> or <w:b w:val="0"/>.
type xmlToggle struct {
	Val string `xml:"val,attr"`
}

func (t *xmlToggle) on() bool {
	if t == nil {
		return false
	}
	switch t.Val {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

type xmlRunProps struct {
	Bold      *xmlToggle `xml:"b"`
	Italic    *xmlToggle `xml:"i"`
	Underline *xmlToggle `xml:"u"`
}

type xmlText struct {
	Space string `xml:"space,attr"`
	Value string `xml:",chardata"`
}

type xmlRowProps struct {
	TblHeader *xmlToggle `xml:"tblHeader"`
}

type xmlCoreProperties struct {
	Title       string `xml:"title"`
	Creator     string `xml:"creator"`
	Description string `xml:"description"`
	Created     string `xml:"created"`
	Modified    string `xml:"modified"`
}

type xmlNumbering struct {
	Abstract []struct {
		ID     string `xml:"abstractNumId,attr"`
		Levels []struct {
			ILevel string      `xml:"ilvl,attr"`
			Format xmlStyleVal `xml:"numFmt"`
		} `xml:"lvl"`
	} `xml:"abstractNum"`
	Nums []struct {
		ID       string      `xml:"numId,attr"`
		Abstract xmlStyleVal `xml:"abstractNumId"`
	} `xml:"num"`
}

type xmlRelationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
		Mode   string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// parser carries the package-level lookups needed while walking the body.
type parser struct {
	// numbering maps numId -> ilvl -> ordered.
	numbering map[string]map[int]bool
	links     map[string]string
}

// Parse reads and parses a .docx file from the given byte slice.
func Parse(data []byte) (*Document, error) {
	reader, err := archive.Open(data)
	if err != nil {
		return nil, fmt.Errorf("invalid .docx file — the file does not appear to be a valid ZIP archive: %w", err)
	}

	doc := &Document{}
	p := &parser{}

	// Supporting parts are optional; only the memory cap is fatal.
	if err := parseCoreProperties(reader, doc); errors.Is(err, archive.ErrMemberTooLarge) {
		return nil, err
	}
	numbering, err := parseNumbering(reader)
	if errors.Is(err, archive.ErrMemberTooLarge) {
		return nil, err
	}
	p.numbering = numbering
	links, err := parseRelationships(reader)
	if errors.Is(err, archive.ErrMemberTooLarge) {
		return nil, err
	}
	p.links = links

	f := archive.Find(reader, "word/document.xml")
	if f == nil {
		return nil, fmt.Errorf("invalid .docx file — missing word/document.xml")
	}
	body, err := archive.ReadMember(f)
	if err != nil {
		return nil, fmt.Errorf("could not read document.xml: %w", err)
	}
	if err := p.parseXMLBody(body, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// ParseReader reads and parses a .docx file from a reader.
func ParseReader(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read input: %w", err)
	}
	return Parse(data)
}

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	f := archive.Find(reader, name)
	if f == nil {
		return nil, nil
	}
	return archive.ReadMember(f)
}

func parseCoreProperties(reader *zip.Reader, doc *Document) error {
	data, err := readPart(reader, "docProps/core.xml")
	if err != nil || data == nil {
		return err
	}
	var props xmlCoreProperties
	if err := xml.Unmarshal(data, &props); err != nil {
		return err
	}
	doc.Metadata = Metadata(props)
	return nil
}

func parseNumbering(reader *zip.Reader) (map[string]map[int]bool, error) {
	data, err := readPart(reader, "word/numbering.xml")
	if err != nil || data == nil {
		return nil, err
	}
	var n xmlNumbering
	if err := xml.Unmarshal(data, &n); err != nil {
		return nil, err
	}

	abstract := make(map[string]map[int]bool, len(n.Abstract))
	for _, a := range n.Abstract {
		levels := make(map[int]bool, len(a.Levels))
		for _, l := range a.Levels {
			lvl, _ := strconv.Atoi(l.ILevel)
			switch l.Format.Val {
			case "bullet", "none", "":
				levels[lvl] = false
			default:
				levels[lvl] = true
			}
		}
		abstract[a.ID] = levels
	}

	out := make(map[string]map[int]bool, len(n.Nums))
	for _, num := range n.Nums {
		if levels, ok := abstract[num.Abstract.Val]; ok {
			out[num.ID] = levels
		}
	}
	return out, nil
}

func parseRelationships(reader *zip.Reader) (map[string]string, error) {
	data, err := readPart(reader, "word/_rels/document.xml.rels")
	if err != nil || data == nil {
		return nil, err
	}
	var rels xmlRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, r := range rels.Items {
		if strings.EqualFold(r.Mode, "External") {
			out[r.ID] = r.Target
		}
	}
	return out, nil
}

func (p *parser) parseXMLBody(data []byte, doc *Document) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return fmt.Errorf("invalid .docx file — no body element found in document.xml")
		}
		if err != nil {
			return fmt.Errorf("XML parse error in document.xml: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "body" {
			break
		}
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("XML parse error in document.xml: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "p":
			node, err := p.decodeParagraph(decoder, se)
			if err != nil {
				return err
			}
			if node != nil {
				doc.Nodes = append(doc.Nodes, *node)
			}
		case "tbl":
			node, err := p.decodeTable(decoder, se)
			if err != nil {
				return err
			}
			doc.Nodes = append(doc.Nodes, *node)
		case "sdt", "sdtContent", "customXml":
			// Content controls wrap ordinary body content; descend.
		default:
			if err := decoder.Skip(); err != nil {
				return fmt.Errorf("XML parse error in document.xml: %w", err)
			}
		}
	}

	return nil
}

type paragraphState struct {
	props xmlParagraphProps
	runs  []Run
}

func (p *parser) decodeParagraph(decoder *xml.Decoder, start xml.StartElement) (*Node, error) {
	var st paragraphState
	if err := p.walkInline(decoder, "", &st); err != nil {
		return nil, err
	}

	var text strings.Builder
	hasImage := false
	for _, r := range st.runs {
		switch {
		case r.Image:
			hasImage = true
		case r.Break || r.PageBreak:
			text.WriteString("\n")
		default:
			text.WriteString(r.Text)
		}
	}

	// Skip empty paragraphs
	if strings.TrimSpace(text.String()) == "" && !hasImage {
		return nil, nil
	}

	node := &Node{
		Type:  NodeParagraph,
		Text:  text.String(),
		Runs:  st.runs,
		Style: st.props.Style.Val,
	}

	// Detect heading style
	styleName := st.props.Style.Val
	if strings.HasPrefix(styleName, "Heading") || strings.HasPrefix(styleName, "heading") {
		node.Type = NodeHeading
		node.Level = 1
		if n, err := strconv.Atoi(strings.TrimSpace(styleName[7:])); err == nil && n >= 1 && n <= 9 {
			node.Level = n
		}
	} else if styleName == "Title" {
		node.Type = NodeHeading
		node.Level = 1
	}

	// Detect outline level
	if v := st.props.Heading.Val; v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 8 {
			node.Type = NodeHeading
			node.Level = n + 1
		}
	}

	// Detect list items
	if numID := st.props.NumPr.NumID.Val; numID != "" && numID != "0" {
		level, _ := strconv.Atoi(st.props.NumPr.ILevel.Val)
		node.Type = NodeListItem
		node.Level = level
		node.ListInfo = &ListInfo{
			NumID:   numID,
			Level:   level,
			Ordered: p.numbering[numID][level],
		}
	}

	return node, nil
}

// walkInline consumes tokens up to the end of the current element, collecting
// runs in document order. Every nested start element is consumed by a
// recursive call, so the first end element seen closes the current one.
func (p *parser) walkInline(decoder *xml.Decoder, link string, st *paragraphState) error {
	for {
		tok, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("XML parse error in paragraph: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				if err := decoder.DecodeElement(&st.props, &t); err != nil {
					return fmt.Errorf("could not parse paragraph properties: %w", err)
				}
			case "r":
				runs, err := decodeRun(decoder)
				if err != nil {
					return err
				}
				for i := range runs {
					runs[i].Link = link
				}
				st.runs = append(st.runs, runs...)
			case "hyperlink":
				if err := p.walkInline(decoder, p.hyperlinkTarget(t), st); err != nil {
					return err
				}
			case "del", "moveFrom":
				if err := decoder.Skip(); err != nil {
					return fmt.Errorf("XML parse error in paragraph: %w", err)
				}
			default:
				// ins, smartTag, sdt, fldSimple and friends contain runs.
				if err := p.walkInline(decoder, link, st); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (p *parser) hyperlinkTarget(se xml.StartElement) string {
	for _, a := range se.Attr {
		if a.Name.Local == "id" {
			return p.links[a.Value]
		}
	}
	for _, a := range se.Attr {
		if a.Name.Local == "anchor" && a.Value != "" {
			return "#" + a.Value
		}
	}
	return ""
}

// decodeRun reads one <w:r> element into text, break and image runs.
func decodeRun(decoder *xml.Decoder) ([]Run, error) {
	var (
		props xmlRunProps
		runs  []Run
		text  strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			runs = append(runs, Run{Text: text.String()})
			text.Reset()
		}
	}

	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("XML parse error in text run: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "rPr":
				if err := decoder.DecodeElement(&props, &t); err != nil {
					return nil, fmt.Errorf("could not parse run properties: %w", err)
				}
				continue
			case "t":
				var x xmlText
				if err := decoder.DecodeElement(&x, &t); err != nil {
					return nil, fmt.Errorf("could not parse run text: %w", err)
				}
				text.WriteString(x.Value)
				continue
			case "tab":
				text.WriteString("\t")
			case "br", "cr":
				flush()
				page := false
				for _, a := range t.Attr {
					if a.Name.Local == "type" && a.Value == "page" {
						page = true
					}
				}
				runs = append(runs, Run{Break: !page, PageBreak: page})
			case "drawing", "pict", "object":
				flush()
				runs = append(runs, Run{Image: true})
			}
			if err := decoder.Skip(); err != nil {
				return nil, fmt.Errorf("XML parse error in text run: %w", err)
			}
		case xml.EndElement:
			flush()
			for i := range runs {
				if runs[i].Image || runs[i].Break || runs[i].PageBreak {
					continue
				}
				runs[i].Bold = props.Bold.on()
				runs[i].Italic = props.Italic.on()
				runs[i].Underline = props.Underline.on()
			}
			return runs, nil
		}
	}
}

func (p *parser) decodeTable(decoder *xml.Decoder, start xml.StartElement) (*Node, error) {
	node := &Node{Type: NodeTable}

	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("could not parse table: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tr" {
				if err := decoder.Skip(); err != nil {
					return nil, fmt.Errorf("could not parse table: %w", err)
				}
				continue
			}
			row, err := p.decodeRow(decoder)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, row)
		case xml.EndElement:
			return node, nil
		}
	}
}

func (p *parser) decodeRow(decoder *xml.Decoder) (Node, error) {
	var row Node

	for {
		tok, err := decoder.Token()
		if err != nil {
			return row, fmt.Errorf("could not parse table row: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "trPr":
				var props xmlRowProps
				if err := decoder.DecodeElement(&props, &t); err != nil {
					return row, fmt.Errorf("could not parse table row properties: %w", err)
				}
				row.Header = props.TblHeader.on()
			case "tc":
				cell, err := p.decodeCell(decoder)
				if err != nil {
					return row, err
				}
				row.Children = append(row.Children, cell)
			default:
				if err := decoder.Skip(); err != nil {
					return row, fmt.Errorf("could not parse table row: %w", err)
				}
			}
		case xml.EndElement:
			return row, nil
		}
	}
}

func (p *parser) decodeCell(decoder *xml.Decoder) (Node, error) {
	var texts []string

	for {
		tok, err := decoder.Token()
		if err != nil {
			return Node{}, fmt.Errorf("could not parse table cell: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para, err := p.decodeParagraph(decoder, t)
				if err != nil {
					return Node{}, err
				}
				if para != nil && para.Text != "" {
					texts = append(texts, para.Text)
				}
			case "tbl":
				nested, err := p.decodeTable(decoder, t)
				if err != nil {
					return Node{}, err
				}
				if s := strings.TrimSpace(tableText(*nested)); s != "" {
					texts = append(texts, s)
				}
			default:
				if err := decoder.Skip(); err != nil {
					return Node{}, fmt.Errorf("could not parse table cell: %w", err)
				}
			}
		case xml.EndElement:
			return Node{Type: NodeParagraph, Text: strings.Join(texts, "\n")}, nil
		}
	}
}

func tableText(n Node) string {
	var b strings.Builder
	for _, row := range n.Children {
		cells := make([]string, 0, len(row.Children))
		for _, cell := range row.Children {
			cells = append(cells, cell.Text)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

// PlainText returns the raw text of the document, paragraphs separated by
// blank lines.
func (d *Document) PlainText() string {
	var b strings.Builder
	for _, n := range d.Nodes {
		switch n.Type {
		case NodeTable:
			b.WriteString(tableText(n))
		default:
			b.WriteString(n.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WordCount returns the total number of words across all text nodes.
func (d *Document) WordCount() int {
	count := 0
	for _, n := range d.Nodes {
		count += countWords(n)
	}
	return count
}

func countWords(n Node) int {
	count := len(strings.Fields(n.Text))
	for _, child := range n.Children {
		count += countWords(child)
	}
	return count
}
