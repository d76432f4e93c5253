package docx

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/klytics/docconv/internal/archive"
)

// Numbering definitions written by WriteDocument.
const (
	bulletNumID  = "1"
	decimalNumID = "2"
)

// WriteDocument generates a .docx file from a Document struct, returning the raw bytes.
func WriteDocument(doc *Document) ([]byte, error) {
	body, err := documentXML(doc)
	if err != nil {
		return nil, fmt.Errorf("could not write document body: %w", err)
	}

	data, err := archive.Pack([]archive.Member{
		{Name: "[Content_Types].xml", Data: []byte(contentTypesXML)},
		{Name: "_rels/.rels", Data: []byte(relsXML)},
		{Name: "docProps/core.xml", Data: []byte(coreXML(doc.Metadata))},
		{Name: "word/_rels/document.xml.rels", Data: []byte(docRelsXML)},
		{Name: "word/numbering.xml", Data: []byte(numberingXML())},
		{Name: "word/document.xml", Data: body},
	})
	if err != nil {
		return nil, fmt.Errorf("could not finalize .docx archive: %w", err)
	}
	return data, nil
}

const contentTypesXML = xml.Header + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
  <Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>
  <Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`

const relsXML = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`

const docRelsXML = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"/>
</Relationships>`

func coreXML(m Metadata) string {
	now := time.Now().UTC().Format(time.RFC3339)
	created, modified := m.Created, m.Modified
	if created == "" {
		created = now
	}
	if modified == "" {
		modified = now
	}

	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	if m.Title != "" {
		fmt.Fprintf(&b, `<dc:title>%s</dc:title>`, xmlEscape(m.Title))
	}
	if m.Creator != "" {
		fmt.Fprintf(&b, `<dc:creator>%s</dc:creator>`, xmlEscape(m.Creator))
	}
	if m.Description != "" {
		fmt.Fprintf(&b, `<dc:description>%s</dc:description>`, xmlEscape(m.Description))
	}
	fmt.Fprintf(&b, `<dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>`, xmlEscape(created))
	fmt.Fprintf(&b, `<dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>`, xmlEscape(modified))
	b.WriteString(`</cp:coreProperties>`)
	return b.String()
}

func numberingXML() string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`)
	for i, format := range []string{"bullet", "decimal"} {
		fmt.Fprintf(&b, `<w:abstractNum w:abstractNumId="%d">`, i)
		for lvl := 0; lvl < 9; lvl++ {
			text := "•"
			if format == "decimal" {
				text = fmt.Sprintf("%%%d.", lvl+1)
			}
			fmt.Fprintf(&b, `<w:lvl w:ilvl="%d"><w:start w:val="1"/><w:numFmt w:val="%s"/><w:lvlText w:val="%s"/><w:pPr><w:ind w:left="%d" w:hanging="360"/></w:pPr></w:lvl>`,
				lvl, format, text, 720*(lvl+1))
		}
		b.WriteString(`</w:abstractNum>`)
	}
	fmt.Fprintf(&b, `<w:num w:numId="%s"><w:abstractNumId w:val="0"/></w:num>`, bulletNumID)
	fmt.Fprintf(&b, `<w:num w:numId="%s"><w:abstractNumId w:val="1"/></w:num>`, decimalNumID)
	b.WriteString(`</w:numbering>`)
	return b.String()
}

func documentXML(doc *Document) ([]byte, error) {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`)
	b.WriteString(`<w:body>`)

	for _, node := range doc.Nodes {
		if err := writeNodeXML(&b, node); err != nil {
			return nil, err
		}
	}

	b.WriteString(`</w:body>`)
	b.WriteString(`</w:document>`)
	return []byte(b.String()), nil
}

func writeNodeXML(b *strings.Builder, n Node) error {
	switch n.Type {
	case NodeHeading:
		level := n.Level
		if level < 1 {
			level = 1
		}
		fmt.Fprintf(b, `<w:p><w:pPr><w:pStyle w:val="Heading%d"/></w:pPr>`, level)
		writeRunsXML(b, n)
		b.WriteString(`</w:p>`)
	case NodeParagraph:
		b.WriteString(`<w:p>`)
		writeRunsXML(b, n)
		b.WriteString(`</w:p>`)
	case NodeListItem:
		numID := bulletNumID
		if n.ListInfo != nil {
			if n.ListInfo.Ordered {
				numID = decimalNumID
			}
		}
		fmt.Fprintf(b, `<w:p><w:pPr><w:numPr><w:ilvl w:val="%d"/><w:numId w:val="%s"/></w:numPr></w:pPr>`, n.Level, numID)
		writeRunsXML(b, n)
		b.WriteString(`</w:p>`)
	case NodeTable:
		b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/></w:tblPr>`)
		for _, row := range n.Children {
			b.WriteString(`<w:tr>`)
			if row.Header {
				b.WriteString(`<w:trPr><w:tblHeader/></w:trPr>`)
			}
			for _, cell := range row.Children {
				b.WriteString(`<w:tc><w:p>`)
				writeRunsXML(b, cell)
				b.WriteString(`</w:p></w:tc>`)
			}
			b.WriteString(`</w:tr>`)
		}
		b.WriteString(`</w:tbl>`)
	default:
		return fmt.Errorf("unknown node type %d", n.Type)
	}
	return nil
}

func writeRunsXML(b *strings.Builder, n Node) {
	if len(n.Runs) == 0 {
		writeTextRun(b, Run{Text: n.Text})
		return
	}
	for _, r := range n.Runs {
		switch {
		case r.PageBreak:
			b.WriteString(`<w:r><w:br w:type="page"/></w:r>`)
		case r.Break:
			b.WriteString(`<w:r><w:br/></w:r>`)
		case r.Image:
			// Image bytes are not carried; nothing to write.
		default:
			writeTextRun(b, r)
		}
	}
}

// writeTextRun writes one run, splitting embedded newlines into <w:br/>.
func writeTextRun(b *strings.Builder, r Run) {
	b.WriteString(`<w:r>`)
	if r.Bold || r.Italic || r.Underline {
		b.WriteString(`<w:rPr>`)
		if r.Bold {
			b.WriteString(`<w:b/>`)
		}
		if r.Italic {
			b.WriteString(`<w:i/>`)
		}
		if r.Underline {
			b.WriteString(`<w:u w:val="single"/>`)
		}
		b.WriteString(`</w:rPr>`)
	}
	for i, line := range strings.Split(r.Text, "\n") {
		if i > 0 {
			b.WriteString(`<w:br/>`)
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		b.WriteString(xmlEscape(line))
		b.WriteString(`</w:t>`)
	}
	b.WriteString(`</w:r>`)
}

func xmlEscape(s string) string {
	// Control characters are not allowed in XML 1.0 text.
	s = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' || r == 0xFFFE || r == 0xFFFF {
			return -1
		}
		return r
	}, s)
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
