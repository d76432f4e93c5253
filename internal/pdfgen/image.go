package pdfgen

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/klytics/docconv/internal/formats/imaging"
)

// Image writes a single-page PDF whose page matches the image's pixel
// dimensions, one pixel per point. PNG variants gofpdf cannot embed
// (16-bit, interlaced) are re-encoded as JPEG first.
func Image(data []byte) ([]byte, error) {
	info, err := imaging.Config(data)
	if err != nil {
		return nil, err
	}

	switch info.Format {
	case "jpeg":
		return imagePDF(data, "JPG", info)
	case "png":
		out, err := imagePDF(data, "PNG", info)
		if err == nil {
			return out, nil
		}
		jpg, convErr := imaging.Convert(data, imaging.JPEG)
		if convErr != nil {
			return nil, err
		}
		return imagePDF(jpg, "JPG", info)
	default:
		return nil, fmt.Errorf("unsupported image format %q", info.Format)
	}
}

func imagePDF(data []byte, imgType string, info imaging.Info) ([]byte, error) {
	w, h := float64(info.Width), float64(info.Height)
	// "P" keeps the custom size as given; "L" would swap it.
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("docconv", true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: imgType}
	pdf.RegisterImageOptionsReader("image", opts, bytes.NewReader(data))
	pdf.ImageOptions("image", 0, 0, w, h, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("could not generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
