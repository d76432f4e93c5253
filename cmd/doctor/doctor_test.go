package doctor

import (
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/klytics/docconv/internal/config"
)

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func find(checks []Check, name string) *Check {
	for i := range checks {
		if checks[i].Name == name {
			return &checks[i]
		}
	}
	return nil
}

func noChrome() (string, bool) { return "", false }

func TestDefaultsPass(t *testing.T) {
	cfg := loadConfig(t, nil)
	checks := RunChecks(cfg, noChrome)

	for _, c := range checks {
		if c.Status == "error" {
			t.Errorf("unexpected error check %+v", c)
		}
	}
	if c := find(checks, "PDF Engine"); c == nil || c.Message != "native (gofpdf)" {
		t.Errorf("engine check = %+v", c)
	}
	if c := find(checks, "PDF Fonts"); c == nil || !strings.Contains(c.Message, "pdf.font_file") {
		t.Errorf("fonts check = %+v", c)
	}
	if c := find(checks, "Config File"); c == nil || c.Status != "warning" {
		t.Errorf("missing config file should warn: %+v", c)
	}
}

func TestBrowserEngine(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"DOCCONV_PDF_ENGINE": "browser"})

	c := find(RunChecks(cfg, noChrome), "PDF Engine")
	if c == nil || c.Status != "error" || !strings.Contains(c.Message, "no Chrome") {
		t.Errorf("missing chrome check = %+v", c)
	}

	found := func() (string, bool) { return "/usr/bin/chromium", true }
	c = find(RunChecks(cfg, found), "PDF Engine")
	if c == nil || c.Status != "ok" || !strings.Contains(c.Message, "/usr/bin/chromium") {
		t.Errorf("chrome check = %+v", c)
	}

	cfg.Browser.RemoteURL = "ws://127.0.0.1:9222"
	c = find(RunChecks(cfg, noChrome), "PDF Engine")
	if c == nil || c.Status != "ok" || !strings.Contains(c.Message, "remote") {
		t.Errorf("remote check = %+v", c)
	}
}
