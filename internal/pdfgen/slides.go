package pdfgen

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Slide page layout, in points.
const (
	slideWidth    = 960.0
	slideHeight   = 540.0
	slideX        = 50.0
	slideTop      = 60.0
	slideStep     = 40.0
	slideBottom   = 50.0
	slideFontSize = 24.0
	slideMaxChars = 100
)

// SlideText is the text of one slide, one entry per line.
type SlideText struct {
	Lines []string
}

// Slides writes one 960x540pt page per slide with its text lines in 24pt,
// each cut to 100 characters. Lines past the bottom margin are dropped.
func Slides(ctx context.Context, slides []SlideText, fonts Fonts) ([]byte, error) {
	// "P" keeps the custom size as given; "L" would swap it.
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: slideWidth, Ht: slideHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("docconv", true)
	var sample strings.Builder
	for _, s := range slides {
		for _, line := range s.Lines {
			sample.WriteString(line)
		}
	}
	text, err := fonts.setup(pdf, "Helvetica", sample.String())
	if err != nil {
		return nil, err
	}
	pdf.SetFont(text.family, "", slideFontSize)
	pdf.SetTextColor(0x33, 0x33, 0x33)

	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pdf.AddPage()
		y := slideTop
		for _, line := range s.Lines {
			if y > slideHeight-slideBottom {
				break
			}
			if r := []rune(line); len(r) > slideMaxChars {
				line = string(r[:slideMaxChars])
			}
			pdf.Text(slideX, y, text.encode(line))
			y += slideStep
		}
	}
	if len(slides) == 0 {
		pdf.AddPage()
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("could not generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
