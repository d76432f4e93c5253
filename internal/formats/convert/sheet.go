package convert

import (
	"context"

	"github.com/klytics/docconv/internal/docmodel"
	"github.com/klytics/docconv/internal/formats/xlsx"
	"github.com/klytics/docconv/internal/pdfgen"
)

// readSheet parses the workbook and selects the requested sheet, or the
// first one when none was named.
func readSheet(ctx context.Context, c *Converter, j *job) (*xlsx.Sheet, error) {
	j.report(StageParse, "parse")
	wb, err := parse(ctx, c, func(context.Context) (*xlsx.Workbook, error) {
		if j.source == "xls" {
			return xlsx.ReadLegacyBytes(j.Data)
		}
		return xlsx.ReadBytes(j.Data)
	})
	if err != nil {
		return nil, err
	}

	sheet, err := wb.Select(j.Sheet)
	if err != nil {
		return nil, &Error{Kind: KindValidation, Op: "select sheet", Err: err}
	}
	if j.Sheet == "" && len(wb.Sheets) > 1 {
		c.cfg.Logger.Debug("convert: using first sheet", "file", j.Name, "sheet", sheet.Name, "sheets", len(wb.Sheets))
	}
	return sheet, nil
}

// sheetToPDF lays the sheet out as one table on landscape A4.
func sheetToPDF(ctx context.Context, c *Converter, j *job) (*output, error) {
	sheet, err := readSheet(ctx, c, j)
	if err != nil {
		return nil, err
	}

	j.report(StageConvert, "convert")
	model := &docmodel.Document{Title: j.title, Style: c.cfg.Style}
	if t := sheet.Table(); t != nil {
		model.Blocks = append(model.Blocks, t)
	}

	j.report(StageGenerate, "generate")
	data, err := c.cfg.Engine.Document(ctx, model, pdfgen.Options{Landscape: true})
	if err != nil {
		return nil, err
	}
	return single("pdf", data), nil
}

func sheetToCSV(ctx context.Context, c *Converter, j *job) (*output, error) {
	sheet, err := readSheet(ctx, c, j)
	if err != nil {
		return nil, err
	}
	j.report(StageGenerate, "generate")
	csv, err := sheet.ToCSV()
	if err != nil {
		return nil, err
	}
	return single("csv", []byte(csv)), nil
}

func sheetToJSON(ctx context.Context, c *Converter, j *job) (*output, error) {
	sheet, err := readSheet(ctx, c, j)
	if err != nil {
		return nil, err
	}
	j.report(StageGenerate, "generate")
	data, err := sheet.JSON()
	if err != nil {
		return nil, err
	}
	return single("json", data), nil
}
