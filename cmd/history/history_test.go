package history

import (
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/klytics/docconv/internal/audit"
)

func TestRender(t *testing.T) {
	color.NoColor = true
	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local)
	got := Render([]audit.Entry{
		{Timestamp: ts, Via: "cli", Source: "/in/report.docx", From: "docx", To: "pdf", BytesIn: 2048, BytesOut: 4096, DurationMs: 1500},
		{Timestamp: ts, Via: "http", Source: "locked.pdf", From: "pdf", To: "txt", BytesIn: 10, DurationMs: 12, ErrorKind: "encrypted"},
	})

	for _, want := range []string{
		"TIME", "CONVERSION",
		"report.docx", "docx → pdf", "2.0 KiB → 4.0 KiB", "1.5s", "ok",
		"locked.pdf", "pdf → txt", "12ms", "encrypted",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered table missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "/in/") {
		t.Error("source should be shown by base name")
	}
}
