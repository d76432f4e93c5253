package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func transparentPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestConvertPNGToJPEGFlattensOntoWhite(t *testing.T) {
	out, err := Convert(transparentPNG(t, 16, 8), JPEG)
	if err != nil {
		t.Fatal(err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("dimensions = %v", b)
	}
	r, g, b, _ := img.At(15, 7).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("transparent pixel not flattened to white: %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestConvertJPEGToPNG(t *testing.T) {
	jpg, err := Convert(transparentPNG(t, 4, 4), JPEG)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Convert(jpg, PNG)
	if err != nil {
		t.Fatal(err)
	}
	info, err := Config(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Format != "png" || info.Width != 4 || info.Height != 4 {
		t.Errorf("info = %+v", info)
	}
}

func TestConvertErrors(t *testing.T) {
	if _, err := Convert([]byte("nope"), PNG); err == nil || !strings.Contains(err.Error(), "corrupt") {
		t.Errorf("expected corrupt image error, got %v", err)
	}
	if _, err := Convert(transparentPNG(t, 1, 1), "gif"); err == nil {
		t.Error("expected error for unsupported target")
	}
}

func TestRenderSlide(t *testing.T) {
	lines := []string{"Title", strings.Repeat("long line ", 30)}
	for i := 0; i < 40; i++ {
		lines = append(lines, "bullet")
	}

	out, err := RenderSlide("Title", lines)
	if err != nil {
		t.Fatal(err)
	}
	info, err := Config(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != SlideWidth || info.Height != SlideHeight {
		t.Errorf("slide size = %dx%d", info.Width, info.Height)
	}
}
