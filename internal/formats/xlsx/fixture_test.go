package xlsx_test

import (
	"testing"

	"github.com/klytics/docconv/internal/formats/xlsx"
	"github.com/klytics/docconv/internal/formats/xlsx/xlsxtest"
)

func TestReadBytesBuiltWorkbook(t *testing.T) {
	data := xlsxtest.Build(t,
		xlsx.Sheet{Name: "TestSheet", Rows: [][]string{
			{"Name", "Age", "City"},
			{"Alice", "30", "New York"},
			{"Bob", "25", "San Francisco"},
		}},
		xlsx.Sheet{Rows: [][]string{{"x"}}},
	)

	wb, err := xlsx.ReadBytes(data)
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	if len(wb.Sheets) != 2 {
		t.Fatalf("expected 2 sheets, got %d", len(wb.Sheets))
	}

	sheet := wb.Sheets[0]
	if sheet.Name != "TestSheet" {
		t.Errorf("expected sheet name 'TestSheet', got %q", sheet.Name)
	}
	if len(sheet.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(sheet.Rows))
	}
	if sheet.Rows[1][0] != "Alice" {
		t.Errorf("expected 'Alice', got %q", sheet.Rows[1][0])
	}
	if wb.Sheets[1].Name != "Sheet2" {
		t.Errorf("unnamed sheet = %q, want Sheet2", wb.Sheets[1].Name)
	}
}
