package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/klytics/docconv/internal/formats/pptx"
)

// contentTypes lists, per source format, the detected MIME types (or any of
// their ancestors) its bytes may carry.
var contentTypes = map[string][]string{
	"docx": {"application/zip"},
	"pptx": {"application/zip"},
	"xlsx": {"application/zip"},
	"xls":  {"application/x-ole-storage", "application/vnd.ms-excel"},
	"pdf":  {"application/pdf"},
	"png":  {"image/png"},
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
}

// AcceptedExtensions returns the source extensions, sorted.
func AcceptedExtensions() []string {
	exts := make([]string, 0, len(SupportedConversions))
	for ext := range SupportedConversions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// validate runs every check that must pass before a routine is started.
func (c *Converter) validate(ctx context.Context, j *job) error {
	targets, ok := SupportedConversions[j.source]
	if !ok {
		shown := j.source
		if shown == "" {
			shown = "(none)"
		}
		return validationf("unsupported file type %q — accepted: %s", shown, strings.Join(AcceptedExtensions(), ", "))
	}

	if err := c.checkSize(j.Name, int64(len(j.Data))); err != nil {
		return err
	}

	if !slices.Contains(targets, j.Target) {
		return &Error{Kind: KindUnsupported, Err: fmt.Errorf("unsupported conversion: %s → %s (supported from %s: %s)",
			j.source, j.Target, j.source, strings.Join(targets, ", "))}
	}

	if err := checkContent(j.source, j.Data); err != nil {
		return err
	}
	return c.checkVolume(ctx, j)
}

func (c *Converter) checkSize(name string, size int64) error {
	if size == 0 {
		return validationf("%s is empty — choose a file with content", name)
	}
	if size > c.cfg.MaxFileSize {
		return validationf("%s is %s — the limit is %s",
			name, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(c.cfg.MaxFileSize)))
	}
	return nil
}

// ReadFile reads path for conversion. Regular files are size-checked
// before they are read.
func (c *Converter) ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s — check the path: %w", path, err)
	}
	if info.Mode().IsRegular() {
		if err := c.checkSize(filepath.Base(path), info.Size()); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %s — check the path: %w", path, err)
	}
	return data, nil
}

// checkContent sniffs the leading bytes and rejects files whose content
// does not match their extension.
func checkContent(source string, data []byte) error {
	mt := mimetype.Detect(data)
	allowed := contentTypes[source]
	for m := mt; m != nil; m = m.Parent() {
		if slices.Contains(allowed, m.String()) {
			return nil
		}
	}
	return validationf("file content does not match its .%s extension (detected %s)", source, mt.String())
}

// checkVolume enforces the page and slide caps before any page or slide is
// parsed.
func (c *Converter) checkVolume(ctx context.Context, j *job) error {
	switch j.source {
	case "pdf":
		n, err := c.cfg.PDF.PageCount(ctx, j.Data)
		if err != nil {
			return classify(err, "count pages", KindParse)
		}
		if n > c.cfg.MaxPages {
			return validationf("PDF has too many pages: %d pages, at most %d allowed", n, c.cfg.MaxPages)
		}
	case "pptx":
		n, err := pptx.SlideCount(j.Data)
		if err != nil {
			return classify(err, "count slides", KindParse)
		}
		if n > c.cfg.MaxSlides {
			return validationf("presentation has too many slides: %d slides, at most %d allowed", n, c.cfg.MaxSlides)
		}
	}
	return nil
}
