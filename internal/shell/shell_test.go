package shell

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klytics/docconv/internal/audit"
	"github.com/klytics/docconv/internal/formats/convert"
)

func newTestSession(t *testing.T) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	log := audit.NewLogger(filepath.Join(dir, "history.jsonl"), true)
	s := NewSession(convert.New(convert.Config{}), log)
	s.HistoryFile = filepath.Join(dir, "shell_history")
	return s, dir
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func eval(t *testing.T, s *Session, line string) string {
	t.Helper()
	out, err := s.Eval(context.Background(), line)
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	return out
}

func TestNewSession(t *testing.T) {
	s, _ := newTestSession(t)
	if len(s.CommandHistory) != 0 {
		t.Errorf("expected empty history, got %d entries", len(s.CommandHistory))
	}
	if len(s.KnownCommands) == 0 {
		t.Error("expected known commands to be populated")
	}
	if s.prompt() != "docconv> " {
		t.Errorf("prompt = %q", s.prompt())
	}
}

func TestOpenConvert(t *testing.T) {
	s, dir := newTestSession(t)
	path := writePNG(t, dir, "logo.png")

	if out := eval(t, s, "open "+path); !strings.Contains(out, "Targets: pdf, jpg") {
		t.Errorf("open output %q", out)
	}
	eval(t, s, "to jpeg")
	if s.Target != "jpg" {
		t.Errorf("target alias not folded: %q", s.Target)
	}
	if !strings.Contains(s.prompt(), "logo.png → jpg") {
		t.Errorf("prompt = %q", s.prompt())
	}

	out := eval(t, s, "convert")
	want := filepath.Join(dir, "logo_converted.jpg")
	if !strings.Contains(out, want) {
		t.Errorf("convert output %q should mention %s", out, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("output not written: %v", err)
	}

	// A second conversion from the same open file to another target.
	eval(t, s, "to pdf")
	custom := filepath.Join(dir, "custom.pdf")
	eval(t, s, "convert "+custom)
	data, err := os.ReadFile(custom)
	if err != nil || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("pdf output missing or invalid: %v", err)
	}

	entries, err := audit.ReadEntries(s.Audit.FilePath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Via != "shell" || entries[1].To != "pdf" {
		t.Errorf("unexpected audit entries %+v", entries)
	}
}

func TestConvertRequiresState(t *testing.T) {
	s, dir := newTestSession(t)
	if _, err := s.Eval(context.Background(), "convert"); err == nil || !strings.Contains(err.Error(), "no file open") {
		t.Errorf("got %v, want no file open", err)
	}
	eval(t, s, "open "+writePNG(t, dir, "a.png"))
	if _, err := s.Eval(context.Background(), "convert"); err == nil || !strings.Contains(err.Error(), "no target") {
		t.Errorf("got %v, want no target", err)
	}
}

func TestToRejectsUnsupportedTarget(t *testing.T) {
	s, dir := newTestSession(t)
	eval(t, s, "open "+writePNG(t, dir, "a.png"))
	_, err := s.Eval(context.Background(), "to docx")
	if err == nil || !strings.Contains(err.Error(), "try: pdf, jpg") {
		t.Errorf("got %v", err)
	}
}

func TestOpenUnsupported(t *testing.T) {
	s, dir := newTestSession(t)
	path := filepath.Join(dir, "notes.odt")
	os.WriteFile(path, []byte("x"), 0644)
	if _, err := s.Eval(context.Background(), "open "+path); err == nil {
		t.Error("expected error for unsupported file type")
	}
	if _, err := s.Eval(context.Background(), "open "+filepath.Join(dir, "missing.docx")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOpenOversized(t *testing.T) {
	s, dir := newTestSession(t)
	s.Converter = convert.New(convert.Config{MaxFileSize: 16})
	path := filepath.Join(dir, "big.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	f.Truncate(17)
	f.Close()

	_, err = s.Eval(context.Background(), "open "+path)
	if convert.KindOf(err) != convert.KindValidation || !strings.Contains(err.Error(), "the limit is 16 B") {
		t.Errorf("got %v, want the size limit error", err)
	}
	if s.Path != "" {
		t.Errorf("oversized file was opened: %q", s.Path)
	}
}

func TestClearAndInfo(t *testing.T) {
	s, dir := newTestSession(t)
	eval(t, s, "open "+writePNG(t, dir, "a.png"))
	eval(t, s, "to pdf")
	if out := eval(t, s, "info"); !strings.Contains(out, "To:      pdf") {
		t.Errorf("info output %q", out)
	}
	eval(t, s, "clear")
	if s.Path != "" || s.Target != "" || s.Data != nil {
		t.Error("clear should reset the session file")
	}
	if out := eval(t, s, "info"); out != "No file open." {
		t.Errorf("info after clear = %q", out)
	}
}

func TestSheetCommand(t *testing.T) {
	s, _ := newTestSession(t)
	eval(t, s, "sheet Q3 Sales")
	if s.Sheet != "Q3 Sales" {
		t.Errorf("sheet = %q", s.Sheet)
	}
	eval(t, s, "sheet")
	if s.Sheet != "" {
		t.Errorf("sheet not cleared: %q", s.Sheet)
	}
}

func TestFormats(t *testing.T) {
	s, _ := newTestSession(t)
	out := eval(t, s, "formats")
	for _, want := range []string{"docx  → pdf, html, txt, md", "pptx  → pdf, images"} {
		if !strings.Contains(out, want) {
			t.Errorf("formats output missing %q:\n%s", want, out)
		}
	}
	if out := eval(t, s, "formats .ODT"); !strings.Contains(out, "odt   (not supported)") {
		t.Errorf("formats odt = %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := s.Eval(context.Background(), "frobnicate"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestHistory(t *testing.T) {
	s, _ := newTestSession(t)
	eval(t, s, "help")
	eval(t, s, "formats")
	out := eval(t, s, "history")
	if !strings.Contains(out, "1  help") || !strings.Contains(out, "3  history") {
		t.Errorf("history output %q", out)
	}
}

func TestComplete(t *testing.T) {
	s, dir := newTestSession(t)

	tests := []struct {
		input string
		want  []string
	}{
		{"co", []string{"convert"}},
		{"h", []string{"help", "history"}},
		{"xyz", nil},
	}
	for _, tt := range tests {
		got := s.Complete(tt.input)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("Complete(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	eval(t, s, "open "+writePNG(t, dir, "a.png"))
	if got := s.Complete("to "); strings.Join(got, ",") != "pdf,jpg" {
		t.Errorf("Complete(to ) = %v", got)
	}
	if got := s.Complete("to j"); strings.Join(got, ",") != "jpg" {
		t.Errorf("Complete(to j) = %v", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs float64
		want string
	}{
		{5, "5s"},
		{59, "59s"},
		{60, "1m 0s"},
		{125, "2m 5s"},
	}
	for _, tt := range tests {
		d := time.Duration(tt.secs * float64(time.Second))
		if got := formatDuration(d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, tt.want)
		}
	}
}
