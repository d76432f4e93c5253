// Package pptx provides reading capabilities for .pptx (PowerPoint) files.
package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/klytics/docconv/internal/archive"
)

// Slide represents a single slide's extracted content.
type Slide struct {
	Number      int      `json:"number"`
	Title       string   `json:"title,omitempty"`
	TextContent []string `json:"textContent"`
}

// Presentation represents a parsed PowerPoint file.
type Presentation struct {
	Slides []Slide `json:"slides"`
}

// Media is an image embedded in the presentation package.
type Media struct {
	Name   string
	Format string // "png" or "jpeg"
	Data   []byte
}

type slideEntry struct {
	number int
	file   *zip.File
}

func open(data []byte) (*zip.Reader, error) {
	reader, err := archive.Open(data)
	if err != nil {
		return nil, fmt.Errorf("invalid .pptx file — the file does not appear to be a valid ZIP archive: %w", err)
	}
	return reader, nil
}

// slideFiles returns the slide parts ordered by slide number, so slide10
// follows slide9.
func slideFiles(reader *zip.Reader) []slideEntry {
	var slides []slideEntry
	for _, f := range reader.File {
		name := f.Name
		if !strings.HasPrefix(name, "ppt/slides/slide") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slideEntry{number: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool {
		return slides[i].number < slides[j].number
	})
	return slides
}

// SlideCount returns the number of slides without reading any slide XML.
func SlideCount(data []byte) (int, error) {
	reader, err := open(data)
	if err != nil {
		return 0, err
	}
	return len(slideFiles(reader)), nil
}

// Parse reads and parses a .pptx file from the given byte slice.
func Parse(data []byte) (*Presentation, error) {
	reader, err := open(data)
	if err != nil {
		return nil, err
	}

	pres := &Presentation{}
	for i, sf := range slideFiles(reader) {
		slide, err := parseSlide(sf.file, i+1)
		if err != nil {
			return nil, fmt.Errorf("could not parse %s: %w", sf.file.Name, err)
		}
		pres.Slides = append(pres.Slides, *slide)
	}

	return pres, nil
}

func parseSlide(f *zip.File, number int) (*Slide, error) {
	data, err := archive.ReadMember(f)
	if err != nil {
		return nil, err
	}

	slide := &Slide{Number: number, TextContent: []string{}}

	// Text is collected per <a:p> paragraph from its <a:t> runs.
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var (
		inTitle bool
		inText  bool
		para    strings.Builder
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("XML parse error: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "ph":
				for _, attr := range t.Attr {
					if attr.Name.Local == "type" && (attr.Value == "title" || attr.Value == "ctrTitle") {
						inTitle = true
					}
				}
			case "t":
				inText = true
			case "br":
				para.WriteString(" ")
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(para.String())
				para.Reset()
				if text == "" {
					continue
				}
				if inTitle && slide.Title == "" {
					slide.Title = text
				}
				slide.TextContent = append(slide.TextContent, text)
			case "sp":
				inTitle = false
			}
		}
	}

	return slide, nil
}

// ReadMedia returns the PNG and JPEG images stored under ppt/media in archive
// order.
func ReadMedia(data []byte) ([]Media, error) {
	reader, err := open(data)
	if err != nil {
		return nil, err
	}

	var media []Media
	for _, f := range reader.File {
		if !strings.HasPrefix(f.Name, "ppt/media/") {
			continue
		}
		var format string
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".png":
			format = "png"
		case ".jpg", ".jpeg":
			format = "jpeg"
		default:
			continue
		}
		b, err := archive.ReadMember(f)
		if err != nil {
			return nil, err
		}
		media = append(media, Media{Name: path.Base(f.Name), Format: format, Data: b})
	}
	return media, nil
}
