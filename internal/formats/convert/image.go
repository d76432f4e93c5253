package convert

import (
	"context"

	"github.com/klytics/docconv/internal/formats/imaging"
	"github.com/klytics/docconv/internal/pdfgen"
)

// imageToPDF embeds the image on a single page of its own pixel size.
func imageToPDF(ctx context.Context, c *Converter, j *job) (*output, error) {
	j.report(StageGenerate, "generate")
	data, err := pdfgen.Image(j.Data)
	if err != nil {
		return nil, classify(err, "embed image", KindParse)
	}
	return single("pdf", data), nil
}

// imageToRaster re-encodes between PNG and JPEG.
func imageToRaster(ctx context.Context, c *Converter, j *job) (*output, error) {
	j.report(StageConvert, "convert")
	format := imaging.PNG
	if j.Target == "jpg" {
		format = imaging.JPEG
	}
	data, err := imaging.Convert(j.Data, format)
	if err != nil {
		return nil, classify(err, "re-encode image", KindParse)
	}
	return single(j.Target, data), nil
}
