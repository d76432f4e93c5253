package audit

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLogWritesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	l := NewLogger(path, true)
	l.Log(context.Background(), Entry{
		Via:        "cli",
		Source:     "report.docx",
		From:       "docx",
		To:         "pdf",
		Output:     "report_converted.pdf",
		BytesIn:    1200,
		BytesOut:   5400,
		DurationMs: 42,
	})

	entries, err := ReadEntries(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Source != "report.docx" || e.To != "pdf" || e.BytesOut != 5400 {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Error("timestamp should be filled in")
	}
	if e.Failed() {
		t.Error("entry without error kind should not be failed")
	}
}

func TestLogDisabledIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	NewLogger(path, false).Log(context.Background(), Entry{Source: "a.pdf"})

	if _, err := os.Stat(path); err == nil {
		t.Error("disabled logger should not create file")
	}
}

func TestLogNilLogger(t *testing.T) {
	var l *Logger
	l.Log(context.Background(), Entry{Source: "a.pdf"})
}

func TestLogConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	l := NewLogger(path, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Log(context.Background(), Entry{Source: "f.pdf", DurationMs: int64(i)})
		}(i)
	}
	wg.Wait()

	entries, err := ReadEntries(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 20 {
		t.Errorf("expected 20 entries, got %d", len(entries))
	}
}

func TestLogCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "history.jsonl")

	NewLogger(path, true).Log(context.Background(), Entry{Source: "x.png"})

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("expected history file to be created in nested directory")
	}
}

func TestReadEntriesSkipsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	content := `{"source":"a.docx","from":"docx","to":"pdf"}
not json
{"source":"b.pdf","from":"pdf","to":"txt","error_kind":"parse"}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadEntries(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[1].Failed() {
		t.Error("second entry should be failed")
	}
}

func TestReadEntriesMissingFile(t *testing.T) {
	entries, err := ReadEntries("/nonexistent/history.jsonl")
	if err != nil {
		t.Fatalf("expected nil error for missing file, got: %v", err)
	}
	if len(entries) != 0 {
		t.Error("expected empty entries for missing file")
	}
}

func TestFilterEntries(t *testing.T) {
	now := time.Now()
	entries := []Entry{
		{Timestamp: now.Add(-2 * time.Hour), From: "docx", To: "pdf"},
		{Timestamp: now.Add(-1 * time.Hour), From: "pdf", To: "txt", ErrorKind: "encrypted"},
		{Timestamp: now, From: "DOCX", To: "html"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"source format", Filter{From: "docx"}, 2},
		{"target format", Filter{To: "txt"}, 1},
		{"failed", Filter{FailedOnly: true}, 1},
		{"since", Filter{Since: now.Add(-90 * time.Minute)}, 2},
		{"until", Filter{Until: now.Add(-90 * time.Minute)}, 1},
	}
	for _, tt := range tests {
		if got := len(FilterEntries(entries, tt.filter)); got != tt.want {
			t.Errorf("%s: got %d entries, want %d", tt.name, got, tt.want)
		}
	}
}

func TestLogSize(t *testing.T) {
	if size := LogSize("/nonexistent/history.jsonl"); size != 0 {
		t.Errorf("expected 0 for missing file, got %d", size)
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	os.WriteFile(path, []byte("some data\n"), 0644)

	if err := Clear(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if len(data) != 0 {
		t.Error("expected empty file after clear")
	}
	if err := Clear(filepath.Join(t.TempDir(), "missing.jsonl")); err != nil {
		t.Errorf("clearing a missing file: %v", err)
	}
}
