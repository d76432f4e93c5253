package watch

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

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestWatcher(t *testing.T, cfg Config) (*Watcher, *audit.Logger) {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	log := audit.NewLogger(filepath.Join(t.TempDir(), "history.jsonl"), true)
	w, err := New(cfg, convert.New(convert.Config{}), log, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.fsw.Close() })
	return w, log
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watch.yaml")
	yml := `debounce: 250ms
concurrency: 4
rules:
  - name: scans
    dir: ` + dir + `
    extensions: [".PNG", jpg]
    target: pdf
    output_dir: ` + filepath.Join(dir, "out") + `
  - dir: ` + dir + `
    target: markdown
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Debounce != 250*time.Millisecond || cfg.Concurrency != 4 {
		t.Errorf("debounce/concurrency = %v/%d", cfg.Debounce, cfg.Concurrency)
	}
	if got := strings.Join(cfg.Rules[0].Extensions, ","); got != "png,jpg" {
		t.Errorf("extensions not normalized: %s", got)
	}
	if cfg.Rules[1].Name != "rule-2" || cfg.Rules[1].Target != "md" {
		t.Errorf("second rule = %+v", cfg.Rules[1])
	}
	if got := strings.Join(cfg.Rules[1].Extensions, ","); got != "docx" {
		t.Errorf("default extensions for md = %s", got)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no rules", Config{}, "no rules"},
		{"no dir", Config{Rules: []Rule{{Target: "pdf"}}}, "dir is required"},
		{"no target", Config{Rules: []Rule{{Dir: "."}}}, "target is required"},
		{"bad pair", Config{Rules: []Rule{{Dir: ".", Extensions: []string{"png"}, Target: "docx"}}}, "cannot convert png to docx"},
		{"no sources", Config{Rules: []Rule{{Dir: ".", Target: "odt"}}}, "no source format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSampleConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watch.yaml")
	if err := SampleConfig(dir).Save(path); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Rules[0].Target != "pdf" || cfg.Debounce != DefaultDebounce {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestMatches(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	flat := Rule{Dir: root, Extensions: []string{"docx"}}
	deep := Rule{Dir: root, Extensions: []string{"docx"}, Recursive: true}

	tests := []struct {
		name string
		rule Rule
		dir  string
		src  string
		want bool
	}{
		{"same dir", flat, root, "docx", true},
		{"wrong ext", flat, root, "pdf", false},
		{"subdir flat", flat, sub, "docx", false},
		{"subdir recursive", deep, sub, "docx", true},
		{"outside recursive", deep, filepath.Dir(root), "docx", false},
	}
	for _, tt := range tests {
		if got := matches(tt.rule, tt.dir, tt.src); got != tt.want {
			t.Errorf("%s: matches = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSkipFile(t *testing.T) {
	for path, want := range map[string]bool{
		"/in/report.docx":           false,
		"/in/~$report.docx":         true,
		"/in/.report.docx.swp":      true,
		"/in/report_converted.pdf":  true,
		"/in/converted/summary.pdf": false,
	} {
		if got := skipFile(path); got != want {
			t.Errorf("skipFile(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestProcess(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	w, log := newTestWatcher(t, Config{Rules: []Rule{
		{Name: "to-pdf", Dir: in, Extensions: []string{"png"}, Target: "pdf", OutputDir: out},
		{Name: "to-jpg", Dir: in, Extensions: []string{"png"}, Target: "jpg"},
	}})

	src := filepath.Join(in, "scan.png")
	os.WriteFile(src, pngBytes(t), 0644)

	events := w.Process(context.Background(), src)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.Status != "converted" {
			t.Errorf("%s: status %s (%s)", ev.Rule, ev.Status, ev.Error)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "scan_converted.pdf")); err != nil {
		t.Errorf("pdf output missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(in, "scan_converted.jpg")); err != nil {
		t.Errorf("jpg output missing: %v", err)
	}

	entries, _ := audit.ReadEntries(log.FilePath)
	if len(entries) != 2 || entries[0].Via != "watch" {
		t.Errorf("unexpected audit entries %+v", entries)
	}
}

func TestProcessFailure(t *testing.T) {
	in := t.TempDir()
	w, log := newTestWatcher(t, Config{Rules: []Rule{
		{Name: "to-pdf", Dir: in, Extensions: []string{"png"}, Target: "pdf"},
	}})
	src := filepath.Join(in, "broken.png")
	os.WriteFile(src, []byte("not really a png"), 0644)

	events := w.Process(context.Background(), src)
	if len(events) != 1 || events[0].Status != "failed" || events[0].Kind != "validation" {
		t.Fatalf("unexpected events %+v", events)
	}
	entries, _ := audit.ReadEntries(log.FilePath)
	if len(entries) != 1 || !entries[0].Failed() {
		t.Errorf("failure not audited: %+v", entries)
	}
	if len(w.Events()) != 1 {
		t.Errorf("events not recorded")
	}
}

func TestStartConvertsNewFiles(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	w, _ := newTestWatcher(t, Config{
		Debounce: 200 * time.Millisecond,
		Rules:    []Rule{{Dir: in, Extensions: []string{"png"}, Target: "jpg", OutputDir: out}},
	})

	done := make(chan Event, 4)
	w.OnEvent = func(ev Event) { done <- ev }

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Start(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	os.WriteFile(filepath.Join(in, "ignored.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(in, "photo.png"), pngBytes(t), 0644)

	select {
	case ev := <-done:
		if ev.Status != "converted" || filepath.Base(ev.Output) != "photo_converted.jpg" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for conversion")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Start returned %v", err)
	}
}
