package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klytics/docconv/internal/archive"
	"github.com/klytics/docconv/internal/pdfgen"
)

func TestConverterConfig(t *testing.T) {
	dir := setupTestConfig(t)
	t.Setenv("DOCCONV_LIMITS_MAX_FILE_SIZE", "2MiB")
	t.Setenv("DOCCONV_LIMITS_MAX_MEMBER_SIZE", "8MiB")
	t.Setenv("DOCCONV_PDF_FONT_SIZE", "10")
	t.Cleanup(func() { archive.MaxMemberSize = archive.DefaultMaxMemberSize })

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	cc, err := cfg.ConverterConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cc.MaxFileSize != 2<<20 {
		t.Errorf("max file size = %d", cc.MaxFileSize)
	}
	if archive.MaxMemberSize != 8<<20 {
		t.Errorf("member cap not applied: %d", archive.MaxMemberSize)
	}
	if cc.ParseTimeout != 30*time.Second || cc.MaxPages != 50 {
		t.Errorf("limits = %+v", cc)
	}
	if cc.Style.Font != "Helvetica" || cc.Style.Size != 10 {
		t.Errorf("style = %+v", cc.Style)
	}
	if _, ok := cc.Engine.(*pdfgen.Native); !ok {
		t.Errorf("engine = %T, want *pdfgen.Native", cc.Engine)
	}

	log := cfg.AuditLogger()
	if log.FilePath != filepath.Join(dir, ".docconv", "history.jsonl") || !log.Enabled {
		t.Errorf("audit logger = %+v", log)
	}
}

func TestConverterConfigErrors(t *testing.T) {
	setupTestConfig(t)

	t.Run("bad size", func(t *testing.T) {
		t.Setenv("DOCCONV_LIMITS_MAX_FILE_SIZE", "lots")
		cfg, _ := Load()
		if _, err := cfg.ConverterConfig(nil); err == nil || !strings.Contains(err.Error(), "limits.max_file_size") {
			t.Errorf("got %v", err)
		}
	})
	t.Run("missing font file", func(t *testing.T) {
		t.Setenv("DOCCONV_PDF_FONT_FILE", filepath.Join(t.TempDir(), "missing.ttf"))
		cfg, _ := Load()
		cc, err := cfg.ConverterConfig(nil)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasSuffix(cc.Fonts.File, "missing.ttf") {
			t.Errorf("fonts = %+v", cc.Fonts)
		}
		hasError := false
		for _, issue := range Validate() {
			if issue.Key == "pdf.font_file" && issue.Severity == "error" {
				hasError = true
			}
		}
		if !hasError {
			t.Error("expected a pdf.font_file validation error")
		}
	})
	t.Run("bad engine", func(t *testing.T) {
		t.Setenv("DOCCONV_PDF_ENGINE", "wkhtmltopdf")
		cfg, _ := Load()
		if _, err := cfg.ConverterConfig(nil); err == nil || !strings.Contains(err.Error(), "unknown PDF engine") {
			t.Errorf("got %v", err)
		}
	})
}
