// Package xlsxtest builds .xlsx workbooks for tests and benchmarks.
package xlsxtest

import (
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/docconv/internal/formats/xlsx"
)

// Build returns sheets as .xlsx bytes, one worksheet per sheet in order.
// Unnamed sheets are called Sheet1, Sheet2 and so on.
func Build(tb testing.TB, sheets ...xlsx.Sheet) []byte {
	tb.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		if err := addSheet(f, i, name); err != nil {
			tb.Fatal(err)
		}
		for r := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				tb.Fatal(err)
			}
			if err := f.SetSheetRow(name, cell, &sheet.Rows[r]); err != nil {
				tb.Fatalf("row %d of %q: %v", r+1, name, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		tb.Fatal(err)
	}
	return buf.Bytes()
}

// addSheet names the workbook's default sheet for i == 0 and appends a new
// one otherwise.
func addSheet(f *excelize.File, i int, name string) error {
	if i == 0 {
		return f.SetSheetName(f.GetSheetName(0), name)
	}
	_, err := f.NewSheet(name)
	return err
}
