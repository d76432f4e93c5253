package xlsx

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/klytics/docconv/internal/docmodel"
)

// ToCSV converts a sheet's data to CSV format. Rows are padded to the sheet
// width so every line has the same number of fields.
func (s *Sheet) ToCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	width := s.Width()

	for _, row := range s.Rows {
		if err := w.Write(pad(row, width)); err != nil {
			return "", fmt.Errorf("could not write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("could not write CSV: %w", err)
	}
	return buf.String(), nil
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// Field is one key/value pair of a record.
type Field struct {
	Key   string
	Value string
}

// Record is one data row keyed by the header row. Fields keep column order.
type Record []Field

// MarshalJSON writes the record as a JSON object in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value stored under key.
func (r Record) Get(key string) (string, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Records returns the data rows as records keyed by the first row. Empty
// cells are omitted, blank rows are skipped, blank header cells become
// "__EMPTY" and repeated header names get a numeric suffix.
func (s *Sheet) Records() []Record {
	if len(s.Rows) == 0 {
		return []Record{}
	}

	keys := headerKeys(s.Rows[0], s.Width())
	records := make([]Record, 0, len(s.Rows)-1)
	for _, row := range s.Rows[1:] {
		var rec Record
		for i, cell := range row {
			if cell == "" {
				continue
			}
			rec = append(rec, Field{Key: keys[i], Value: cell})
		}
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	return records
}

func headerKeys(header []string, width int) []string {
	keys := make([]string, width)
	used := make(map[string]bool, width)
	suffix := make(map[string]int)
	for i := range keys {
		base := ""
		if i < len(header) {
			base = strings.TrimSpace(header[i])
		}
		if base == "" {
			base = "__EMPTY"
		}
		key := base
		for used[key] {
			suffix[base]++
			key = fmt.Sprintf("%s_%d", base, suffix[base])
		}
		used[key] = true
		keys[i] = key
	}
	return keys
}

// JSON returns the sheet's records as an indented JSON array.
func (s *Sheet) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(s.Records(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not encode sheet %q as JSON: %w", s.Name, err)
	}
	return data, nil
}

// Table returns the sheet as a document-model table whose first row is the
// header, or nil for an empty sheet.
func (s *Sheet) Table() *docmodel.Table {
	return docmodel.NewTable(s.Rows, true)
}
