package imaging

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Slide card geometry. Text is drawn at a third of the output size and
// scaled up.
const (
	SlideWidth  = 960
	SlideHeight = 540
	cardScale   = 3
	cardMargin  = 8
)

var (
	slideBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	slideTitleColor = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	slideTextColor  = color.RGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff}
)

// RenderSlide draws a slide's title and text lines onto a 960x540 PNG.
// Lines that do not fit are truncated; lines past the bottom are dropped.
func RenderSlide(title string, lines []string) ([]byte, error) {
	w, h := SlideWidth/cardScale, SlideHeight/cardScale
	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.NewUniform(slideBackground), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	advance := face.Advance
	lineHeight := face.Height + 3
	maxChars := (w - 2*cardMargin) / advance

	d := &font.Drawer{Dst: small, Face: face}
	y := cardMargin + face.Ascent

	drawLine := func(text string, c color.Color) bool {
		if y > h-cardMargin {
			return false
		}
		if r := []rune(text); len(r) > maxChars {
			text = string(r[:maxChars-3]) + "..."
		}
		d.Src = image.NewUniform(c)
		d.Dot = fixed.P(cardMargin, y)
		d.DrawString(text)
		y += lineHeight
		return true
	}

	body := lines
	if title != "" {
		drawLine(title, slideTitleColor)
		y += lineHeight / 2
		if len(body) > 0 && body[0] == title {
			body = body[1:]
		}
	}
	for _, l := range body {
		if !drawLine(l, slideTextColor) {
			break
		}
	}

	big := image.NewRGBA(image.Rect(0, 0, SlideWidth, SlideHeight))
	draw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), draw.Src, nil)
	return Encode(big, PNG)
}
