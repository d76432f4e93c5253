package xlsx

import (
	"strings"
	"testing"
)

func TestReadBytesInvalid(t *testing.T) {
	if _, err := ReadBytes([]byte("not a workbook")); err == nil {
		t.Error("expected error for invalid data")
	}
}

func TestReadLegacyBytesInvalid(t *testing.T) {
	if _, err := ReadLegacyBytes([]byte("not a workbook")); err == nil {
		t.Error("expected error for invalid data")
	}
}

func TestSheetToCSV(t *testing.T) {
	sheet := Sheet{
		Name: "Test",
		Rows: [][]string{
			{"Name", "Value", "Note"},
			{"Test", "123"},
			{"a,b", `say "hi"`, "x"},
		},
	}

	got, err := sheet.ToCSV()
	if err != nil {
		t.Fatal(err)
	}
	expected := "Name,Value,Note\nTest,123,\n\"a,b\",\"say \"\"hi\"\"\",x\n"
	if got != expected {
		t.Errorf("expected CSV %q, got %q", expected, got)
	}
}

func TestSheetRecords(t *testing.T) {
	sheet := Sheet{
		Rows: [][]string{
			{"Name", "", "Name", "Score"},
			{"Alice", "x", "A2", "10"},
			{"", "", "", ""},
			{"Bob", "", "", "7", "extra"},
		},
	}

	recs := sheet.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	first := recs[0]
	for key, want := range map[string]string{"Name": "Alice", "__EMPTY": "x", "Name_1": "A2", "Score": "10"} {
		if got, ok := first.Get(key); !ok || got != want {
			t.Errorf("record[0][%q] = %q, want %q", key, got, want)
		}
	}

	second := recs[1]
	if len(second) != 3 {
		t.Errorf("expected empty cells omitted, got %+v", second)
	}
	if got, _ := second.Get("__EMPTY_1"); got != "extra" {
		t.Errorf("cell past header = %q", got)
	}
}

func TestSheetJSONKeepsColumnOrder(t *testing.T) {
	sheet := Sheet{Name: "S", Rows: [][]string{{"z", "a"}, {"1", "2"}}}
	data, err := sheet.JSON()
	if err != nil {
		t.Fatal(err)
	}
	want := "[\n  {\n    \"z\": \"1\",\n    \"a\": \"2\"\n  }\n]"
	if string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}

	empty := Sheet{Name: "E"}
	data, err = empty.JSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("empty sheet JSON = %s", data)
	}
}

func TestSheetTable(t *testing.T) {
	sheet := Sheet{Rows: [][]string{{"A", "B"}, {"1"}}}
	tbl := sheet.Table()
	if tbl == nil || !tbl.Header {
		t.Fatalf("table = %+v", tbl)
	}
	if len(tbl.Columns) != 2 || len(tbl.Rows[1]) != 2 {
		t.Errorf("rows not padded to width: %+v", tbl.Rows)
	}

	if (&Sheet{}).Table() != nil {
		t.Error("expected nil table for empty sheet")
	}
}

func TestGetSheetAndSelect(t *testing.T) {
	wb := &Workbook{
		Sheets: []Sheet{
			{Name: "One"},
			{Name: "Two"},
		},
	}

	s, err := wb.GetSheet("Two")
	if err != nil {
		t.Fatalf("GetSheet failed: %v", err)
	}
	if s.Name != "Two" {
		t.Errorf("expected 'Two', got %q", s.Name)
	}

	_, err = wb.GetSheet("Missing")
	if err == nil || !strings.Contains(err.Error(), "available sheets") {
		t.Errorf("expected error listing sheets, got %v", err)
	}

	s, err = wb.Select("")
	if err != nil || s.Name != "One" {
		t.Errorf("Select(\"\") = %v, %v", s, err)
	}
	if _, err := (&Workbook{}).Select(""); err == nil {
		t.Error("expected error for workbook without sheets")
	}
}

func TestRowCount(t *testing.T) {
	sheet := Sheet{
		Rows: [][]string{
			{"A", "B"},
			{"C", "D"},
			{"", ""},
		},
	}

	if rc := sheet.RowCount(); rc != 2 {
		t.Errorf("expected 2 non-empty rows, got %d", rc)
	}
}
