package convert

import (
	"context"

	"github.com/klytics/docconv/internal/formats/imaging"
	"github.com/klytics/docconv/internal/formats/pptx"
	"github.com/klytics/docconv/internal/pdfgen"
)

func parsePptx(ctx context.Context, c *Converter, j *job) (*pptx.Presentation, error) {
	j.report(StageParse, "parse")
	return parse(ctx, c, func(context.Context) (*pptx.Presentation, error) {
		return pptx.Parse(j.Data)
	})
}

func pptxToPDF(ctx context.Context, c *Converter, j *job) (*output, error) {
	pres, err := parsePptx(ctx, c, j)
	if err != nil {
		return nil, err
	}

	j.report(StageConvert, "convert")
	slides := make([]pdfgen.SlideText, len(pres.Slides))
	for i, s := range pres.Slides {
		slides[i] = pdfgen.SlideText{Lines: s.TextContent}
	}

	j.report(StageGenerate, "generate")
	data, err := pdfgen.Slides(ctx, slides, c.cfg.Fonts)
	if err != nil {
		return nil, err
	}
	return single("pdf", data), nil
}

// pptxToImages returns the presentation's embedded PNG and JPEG media. A
// presentation without media gets one rendered text card per slide.
func pptxToImages(ctx context.Context, c *Converter, j *job) (*output, error) {
	j.report(StageParse, "parse")
	media, err := parse(ctx, c, func(context.Context) ([]pptx.Media, error) {
		return pptx.ReadMedia(j.Data)
	})
	if err != nil {
		return nil, err
	}

	out := &output{prefix: "slide"}
	if len(media) > 0 {
		if len(media) > c.cfg.MaxSlides {
			return nil, validationf("presentation has too many images: %d images, at most %d allowed", len(media), c.cfg.MaxSlides)
		}
		for _, m := range media {
			ext := "png"
			if m.Format == imaging.JPEG {
				ext = "jpg"
			}
			out.units = append(out.units, unit{ext: ext, data: m.Data})
		}
		j.report(StageGenerate, "package")
		return out, nil
	}

	pres, err := parsePptx(ctx, c, j)
	if err != nil {
		return nil, err
	}
	if len(pres.Slides) == 0 {
		return nil, validationf("%s has no slides — nothing to render", j.Name)
	}

	j.report(StageConvert, "render")
	progress := j.pageProgress(StageConvert, StageGenerate, "slide")
	for i, s := range pres.Slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := imaging.RenderSlide(s.Title, s.TextContent)
		if err != nil {
			return nil, err
		}
		out.units = append(out.units, unit{ext: "png", data: img})
		progress(i+1, len(pres.Slides))
	}
	return out, nil
}
