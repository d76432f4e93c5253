package pdfgen

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/encoding/charmap"
)

// unicodeFamily is the family name the TrueType faces are registered under.
const unicodeFamily = "docconvsans"

// Fonts selects the faces used for generated text.
//
// The core PDF fonts (Helvetica and friends) only carry cp1252. Text outside
// that set is written with a TrueType font instead: File when configured,
// otherwise the Go fonts, which cover Latin, Greek and Cyrillic. CJK text
// needs a File with those glyphs (for example NotoSansSC-Regular.ttf).
type Fonts struct {
	// File is a TrueType font used for every style. When set it is used
	// for all text, not only for text the core fonts cannot encode.
	File string
}

// textSetup is the result of choosing fonts for one PDF.
type textSetup struct {
	family  string
	unicode bool
	encode  func(string) string
}

// setup chooses the font family for pdf. family is the requested core font
// and sample is all the text that will be written.
func (f Fonts) setup(pdf *gofpdf.Fpdf, family, sample string) (textSetup, error) {
	if f.File == "" && fitsCP1252(sample) {
		return textSetup{family: family, encode: pdf.UnicodeTranslatorFromDescriptor("")}, nil
	}

	regular, bold, italic, boldItalic := goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF
	if f.File != "" {
		data, err := os.ReadFile(f.File)
		if err != nil {
			return textSetup{}, fmt.Errorf("could not read font %s — check pdf.font_file: %w", f.File, err)
		}
		regular, bold, italic, boldItalic = data, data, data, data
	}
	pdf.AddUTF8FontFromBytes(unicodeFamily, "", regular)
	pdf.AddUTF8FontFromBytes(unicodeFamily, "B", bold)
	pdf.AddUTF8FontFromBytes(unicodeFamily, "I", italic)
	pdf.AddUTF8FontFromBytes(unicodeFamily, "BI", boldItalic)
	if err := pdf.Error(); err != nil {
		return textSetup{}, fmt.Errorf("could not load font %s: %w", f.describe(), err)
	}
	return textSetup{family: unicodeFamily, unicode: true, encode: bmpOnly}, nil
}

func (f Fonts) describe() string {
	if f.File == "" {
		return "Go fonts"
	}
	return f.File
}

// fitsCP1252 reports whether every rune of s has a cp1252 code.
func fitsCP1252(s string) bool {
	for _, r := range s {
		if r < utf8.RuneSelf {
			continue
		}
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}

// bmpOnly replaces runes outside the Basic Multilingual Plane, which the
// TrueType width tables do not index.
func bmpOnly(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool { return r > 0xFFFF }) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return utf8.RuneError
		}
		return r
	}, s)
}
