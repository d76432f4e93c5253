// Package doctor provides the "docconv doctor" command for checking that
// the conversion engines and configuration are usable.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/docconv/internal/config"
	"github.com/klytics/docconv/internal/formats/pdfdoc"
	"github.com/klytics/docconv/internal/output"
	"github.com/klytics/docconv/internal/pdfgen"
)

// Check represents a single health check result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message"`
}

// NewCommand creates the "doctor" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check conversion engines and configuration",
		Long:  "Run diagnostic checks to verify docconv is properly configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			checks := RunChecks(cfg, pdfgen.LookupChrome)

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return output.PrintJSON("doctor", checks)
			}

			green := color.New(color.FgGreen).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "docconv doctor")
			fmt.Fprintln(out, "==============")
			fmt.Fprintln(out)

			okCount, warnCount, errCount := 0, 0, 0
			for _, c := range checks {
				var icon string
				switch c.Status {
				case "ok":
					icon = green("✓")
					okCount++
				case "warning":
					icon = yellow("!")
					warnCount++
				case "error":
					icon = red("✗")
					errCount++
				}
				fmt.Fprintf(out, "  %s %s: %s\n", icon, c.Name, c.Message)
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "  %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

			if errCount > 0 {
				return fmt.Errorf("%d check(s) failed", errCount)
			}
			return nil
		},
	}
}

// RunChecks inspects the runtime, configuration and engines. lookChrome
// locates a local browser.
func RunChecks(cfg *config.Config, lookChrome func() (string, bool)) []Check {
	checks := []Check{{
		Name:    "Go Runtime",
		Status:  "ok",
		Message: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}}

	if _, err := os.Stat(config.ConfigPath()); err == nil {
		checks = append(checks, Check{Name: "Config File", Status: "ok", Message: config.ConfigPath()})
	} else {
		checks = append(checks, Check{Name: "Config File", Status: "warning", Message: "Not found — using defaults, run 'docconv config init'"})
	}

	for _, issue := range config.Validate() {
		if issue.Severity == "error" {
			checks = append(checks, Check{Name: "Config " + issue.Key, Status: "error", Message: issue.Message})
		}
	}

	switch cfg.PDF.Engine {
	case "", pdfgen.EngineNative:
		checks = append(checks, Check{Name: "PDF Engine", Status: "ok", Message: "native (gofpdf)"})
	case pdfgen.EngineBrowser:
		checks = append(checks, browserCheck(cfg.Browser.RemoteURL, lookChrome))
	default:
		checks = append(checks, Check{Name: "PDF Engine", Status: "error", Message: fmt.Sprintf("unknown engine %q", cfg.PDF.Engine)})
	}

	if cfg.PDF.FontFile == "" {
		checks = append(checks, Check{Name: "PDF Fonts", Status: "ok", Message: "Go fonts for non-Latin text (no CJK) — set pdf.font_file for CJK"})
	} else {
		checks = append(checks, Check{Name: "PDF Fonts", Status: "ok", Message: config.ExpandHome(cfg.PDF.FontFile)})
	}

	if pdfdoc.RasterAvailable {
		checks = append(checks, Check{Name: "PDF Rasterizer", Status: "ok", Message: "MuPDF"})
	} else {
		checks = append(checks, Check{Name: "PDF Rasterizer", Status: "warning", Message: "not built in — pdf → images needs a build with -tags mupdf"})
	}

	if !cfg.Audit.Enabled {
		checks = append(checks, Check{Name: "History", Status: "ok", Message: "disabled"})
	} else if err := os.MkdirAll(filepath.Dir(cfg.AuditPath()), 0755); err != nil {
		checks = append(checks, Check{Name: "History", Status: "warning", Message: fmt.Sprintf("cannot create %s: %v", filepath.Dir(cfg.AuditPath()), err)})
	} else {
		checks = append(checks, Check{Name: "History", Status: "ok", Message: cfg.AuditPath()})
	}

	return checks
}

func browserCheck(remoteURL string, lookChrome func() (string, bool)) Check {
	if remoteURL != "" {
		return Check{Name: "PDF Engine", Status: "ok", Message: "browser (remote " + remoteURL + ")"}
	}
	if path, ok := lookChrome(); ok {
		return Check{Name: "PDF Engine", Status: "ok", Message: "browser (" + path + ")"}
	}
	return Check{Name: "PDF Engine", Status: "error", Message: "browser engine selected but no Chrome found — install Chrome or set browser.remote_url"}
}
