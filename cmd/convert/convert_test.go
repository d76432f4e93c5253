package convert

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klytics/docconv/internal/audit"
	conv "github.com/klytics/docconv/internal/formats/convert"
	"github.com/klytics/docconv/internal/output"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func newRunner(t *testing.T, opts options) (*runner, *bytes.Buffer) {
	t.Helper()
	t.Setenv("DOCCONV_NO_PROGRESS", "1")
	var out bytes.Buffer
	return &runner{
		conv:  conv.New(conv.Config{}),
		audit: audit.NewLogger(filepath.Join(t.TempDir(), "history.jsonl"), true),
		opts:  opts,
		out:   &out,
	}, &out
}

func TestSingle(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "logo.png")
	writePNG(t, src)

	r, out := newRunner(t, options{to: "jpeg"})
	res, err := r.single(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "logo_converted.jpg")
	if res.Output != want || res.Format != "jpg" {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "logo_converted.jpg") {
		t.Errorf("output %q", out.String())
	}

	entries, _ := audit.ReadEntries(r.audit.FilePath)
	if len(entries) != 1 || entries[0].Via != "cli" || entries[0].BytesOut == 0 {
		t.Errorf("audit entries %+v", entries)
	}
}

func TestSingleExplicitOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "logo.png")
	writePNG(t, src)
	dest := filepath.Join(dir, "nested", "out.pdf")

	r, _ := newRunner(t, options{to: "pdf", output: dest})
	if _, err := r.single(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("explicit output missing or invalid: %v", err)
	}
}

func TestSingleFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "logo.png")
	writePNG(t, src)

	r, _ := newRunner(t, options{to: "docx"})
	_, err := r.single(context.Background(), src)
	if conv.KindOf(err) != conv.KindUnsupported {
		t.Fatalf("got %v, want unsupported", err)
	}
	entries, _ := audit.ReadEntries(r.audit.FilePath)
	if len(entries) != 1 || entries[0].ErrorKind != "unsupported" {
		t.Errorf("failure not audited: %+v", entries)
	}
}

func TestBatch(t *testing.T) {
	in := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		writePNG(t, filepath.Join(in, name))
	}
	os.WriteFile(filepath.Join(in, "d.png"), []byte("broken"), 0644)

	r, out := newRunner(t, options{to: "pdf", outDir: outDir, concurrency: 3})
	err := r.batch(context.Background(), filepath.Join(in, "*.png"))
	if err == nil || !strings.Contains(err.Error(), "1 of 4 conversions failed") {
		t.Fatalf("got %v", err)
	}
	if conv.KindOf(err) != conv.KindValidation {
		t.Errorf("batch error should carry the first failure's kind, got %v", conv.KindOf(err))
	}
	for _, name := range []string{"a", "b", "c"} {
		if _, err := os.Stat(filepath.Join(outDir, name+"_converted.pdf")); err != nil {
			t.Errorf("%s not converted: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "3 succeeded, 1 failed") {
		t.Errorf("summary missing from %q", out.String())
	}
}

func TestBatchReportsUserMessage(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"))
	os.WriteFile(filepath.Join(in, "b.png"), []byte("\x89PNG\r\n\x1a\ntruncated"), 0644)

	r, _ := newRunner(t, options{to: "pdf", outDir: t.TempDir()})
	err := r.batch(context.Background(), filepath.Join(in, "*.png"))
	if err == nil {
		t.Fatal("expected a batch error")
	}
	msg := output.Message(err)
	if !strings.Contains(msg, "1 of 2 conversions failed") || !strings.Contains(msg, "corrupted or not a valid document") {
		t.Errorf("message = %q", msg)
	}
	if strings.Contains(msg, "embed image") {
		t.Errorf("message leaks library text: %q", msg)
	}
	if output.ExitCode(err) != output.ExitUserError {
		t.Errorf("exit code = %d, want %d", output.ExitCode(err), output.ExitUserError)
	}
}

func TestSingleOversizedFileNotRead(t *testing.T) {
	src := filepath.Join(t.TempDir(), "huge.png")
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(65); err != nil {
		t.Fatal(err)
	}
	f.Close()

	r, _ := newRunner(t, options{to: "pdf"})
	r.conv = conv.New(conv.Config{MaxFileSize: 64})
	_, err = r.single(context.Background(), src)
	if conv.KindOf(err) != conv.KindValidation || !strings.Contains(output.Message(err), "limit is 64 B") {
		t.Fatalf("got %v, want the size limit error", err)
	}
}

func TestBatchRejectsOutputFlag(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"))
	r, _ := newRunner(t, options{to: "pdf", output: "x.pdf"})
	if err := r.batch(context.Background(), filepath.Join(in, "*.png")); err == nil {
		t.Error("expected -o to be rejected with a glob")
	}
}

func TestBatchNoMatches(t *testing.T) {
	r, _ := newRunner(t, options{to: "pdf"})
	if err := r.batch(context.Background(), filepath.Join(t.TempDir(), "*.docx")); err == nil {
		t.Error("expected error for empty glob")
	}
}

func TestHelpNamesRasterBuildTag(t *testing.T) {
	if long := NewCommand().Long; !strings.Contains(long, "-tags mupdf") {
		t.Errorf("convert --help does not mention the mupdf build tag:\n%s", long)
	}
}
