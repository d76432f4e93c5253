package config

import (
	"log/slog"

	"github.com/klytics/docconv/internal/archive"
	"github.com/klytics/docconv/internal/audit"
	"github.com/klytics/docconv/internal/docmodel"
	"github.com/klytics/docconv/internal/formats/convert"
	"github.com/klytics/docconv/internal/pdfgen"
)

// ConverterConfig turns the loaded settings into a convert.Config. It also
// applies the archive member cap, which is process-wide.
func (c *Config) ConverterConfig(logger *slog.Logger) (convert.Config, error) {
	maxFile, err := c.FileSizeLimit()
	if err != nil {
		return convert.Config{}, err
	}
	maxMember, err := c.MemberSizeLimit()
	if err != nil {
		return convert.Config{}, err
	}
	if maxMember > 0 {
		archive.MaxMemberSize = maxMember
	}

	fonts := pdfgen.Fonts{File: ExpandHome(c.PDF.FontFile)}
	engine, err := pdfgen.New(c.PDF.Engine, fonts, pdfgen.BrowserConfig{
		RemoteURL: c.Browser.RemoteURL,
		Logger:    logger,
	})
	if err != nil {
		return convert.Config{}, err
	}

	return convert.Config{
		MaxFileSize:  maxFile,
		MaxPages:     c.Limits.MaxPages,
		MaxSlides:    c.Limits.MaxSlides,
		ParseTimeout: c.Limits.ParseTimeout,
		Engine:       engine,
		Fonts:        fonts,
		Style:        docmodel.TextStyle{Font: c.PDF.Font, Size: c.PDF.FontSize},
		Logger:       logger,
	}, nil
}

// AuditLogger returns the history logger for the configured path.
func (c *Config) AuditLogger() *audit.Logger {
	path := c.AuditPath()
	if path == "" {
		path = audit.DefaultPath()
	}
	return audit.NewLogger(path, c.Audit.Enabled)
}
