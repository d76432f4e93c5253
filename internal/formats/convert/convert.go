// Package convert dispatches a source file and a target format to the
// routine that performs the conversion. All conversions run in-process;
// only the optional browser PDF engine talks to an external Chrome.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klytics/docconv/internal/archive"
	"github.com/klytics/docconv/internal/docmodel"
	"github.com/klytics/docconv/internal/formats/pdfdoc"
	"github.com/klytics/docconv/internal/pdfgen"
)

// SupportedConversions lists every permitted source→target pair.
var SupportedConversions = map[string][]string{
	"docx": {"pdf", "html", "txt", "md"},
	"pdf":  {"docx", "html", "txt", "images"},
	"pptx": {"pdf", "images"},
	"xlsx": {"pdf", "csv", "json"},
	"xls":  {"pdf", "csv", "json"},
	"png":  {"pdf", "jpg"},
	"jpg":  {"pdf", "png"},
	"jpeg": {"pdf", "png"},
}

// MIMETypes maps output extensions to their content types.
var MIMETypes = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"html": "text/html; charset=utf-8",
	"txt":  "text/plain; charset=utf-8",
	"md":   "text/markdown; charset=utf-8",
	"csv":  "text/csv; charset=utf-8",
	"json": "application/json",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"zip":  "application/zip",
}

// Limits applied when the corresponding Config field is zero.
const (
	DefaultMaxFileSize  int64 = 50 << 20
	DefaultMaxPages           = 50
	DefaultMaxSlides          = 50
	DefaultParseTimeout       = 30 * time.Second
)

// Progress stages, in percent.
const (
	StageRead     = 10
	StageParse    = 30
	StageConvert  = 50
	StageGenerate = 90
	StageDone     = 100
)

// ProgressFunc receives a completion percentage and a short stage label.
type ProgressFunc func(percent int, stage string)

// Request is one conversion. It carries everything a routine needs, so
// concurrent requests share nothing.
type Request struct {
	Name     string // source filename; its extension selects the source format
	Data     []byte
	Target   string
	Sheet    string // spreadsheet sources only; empty selects the first sheet
	Progress ProgressFunc
}

// Result is a finished conversion. When the routine produced several units
// Data is a ZIP and Members lists its entries in order.
type Result struct {
	Filename string
	MIMEType string
	Data     []byte
	Members  []string
}

// PDFReader is the PDF collaborator the routines depend on.
type PDFReader interface {
	PageCount(ctx context.Context, data []byte) (int, error)
	ExtractText(ctx context.Context, data []byte, onPage func(page, total int)) ([]pdfdoc.Page, error)
	Rasterize(ctx context.Context, data []byte, onPage func(page, total int)) ([][]byte, error)
}

type pdfdocReader struct{}

func (pdfdocReader) PageCount(ctx context.Context, data []byte) (int, error) {
	return pdfdoc.PageCount(ctx, data)
}

func (pdfdocReader) ExtractText(ctx context.Context, data []byte, onPage func(page, total int)) ([]pdfdoc.Page, error) {
	return pdfdoc.ExtractText(ctx, data, onPage)
}

func (pdfdocReader) Rasterize(ctx context.Context, data []byte, onPage func(page, total int)) ([][]byte, error) {
	return pdfdoc.Rasterize(ctx, data, onPage)
}

// Config configures a Converter. Zero values select the defaults.
type Config struct {
	MaxFileSize  int64
	MaxPages     int
	MaxSlides    int
	ParseTimeout time.Duration

	Engine pdfgen.Engine // nil selects the native gofpdf engine
	Fonts  pdfgen.Fonts  // text fonts for the native engine and slide PDFs
	PDF    PDFReader     // nil selects pdfdoc
	Style  docmodel.TextStyle
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.MaxSlides <= 0 {
		c.MaxSlides = DefaultMaxSlides
	}
	if c.ParseTimeout <= 0 {
		c.ParseTimeout = DefaultParseTimeout
	}
	if c.Engine == nil {
		c.Engine = &pdfgen.Native{Fonts: c.Fonts}
	}
	if c.PDF == nil {
		c.PDF = pdfdocReader{}
	}
	if c.Style.Font == "" {
		c.Style.Font = docmodel.DefaultStyle.Font
	}
	if c.Style.Size <= 0 {
		c.Style.Size = docmodel.DefaultStyle.Size
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Converter runs conversions. It is safe for concurrent use.
type Converter struct {
	cfg Config
}

// New returns a Converter with cfg's zero fields defaulted.
func New(cfg Config) *Converter {
	cfg.defaults()
	return &Converter{cfg: cfg}
}

// Limits returns the effective configuration limits.
func (c *Converter) Limits() (maxFileSize int64, maxPages, maxSlides int) {
	return c.cfg.MaxFileSize, c.cfg.MaxPages, c.cfg.MaxSlides
}

// unit is one output file of a routine.
type unit struct {
	ext  string
	data []byte
}

// output is what a routine returns. prefix names ZIP members when there is
// more than one unit.
type output struct {
	prefix string
	units  []unit
}

func single(ext string, data []byte) *output {
	return &output{units: []unit{{ext: ext, data: data}}}
}

// job is the per-request state handed to a routine.
type job struct {
	*Request
	source string
	title  string
}

func (j *job) report(percent int, stage string) {
	if j.Progress != nil {
		j.Progress(percent, stage)
	}
}

// pageProgress spreads per-page callbacks across [from, to).
func (j *job) pageProgress(from, to int, stage string) func(page, total int) {
	return func(page, total int) {
		if total <= 0 {
			return
		}
		j.report(from+(to-from)*page/total, fmt.Sprintf("%s %d/%d", stage, page, total))
	}
}

type routine func(ctx context.Context, c *Converter, j *job) (*output, error)

type pair struct{ from, to string }

var routines = map[pair]routine{
	{"docx", "pdf"}:    docxToPDF,
	{"docx", "html"}:   docxToHTML,
	{"docx", "txt"}:    docxToText,
	{"docx", "md"}:     docxToMarkdown,
	{"pdf", "docx"}:    pdfToDocx,
	{"pdf", "html"}:    pdfToHTML,
	{"pdf", "txt"}:     pdfToText,
	{"pdf", "images"}:  pdfToImages,
	{"pptx", "pdf"}:    pptxToPDF,
	{"pptx", "images"}: pptxToImages,
	{"xlsx", "pdf"}:    sheetToPDF,
	{"xlsx", "csv"}:    sheetToCSV,
	{"xlsx", "json"}:   sheetToJSON,
	{"xls", "pdf"}:     sheetToPDF,
	{"xls", "csv"}:     sheetToCSV,
	{"xls", "json"}:    sheetToJSON,
	{"png", "pdf"}:     imageToPDF,
	{"png", "jpg"}:     imageToRaster,
	{"jpg", "pdf"}:     imageToPDF,
	{"jpg", "png"}:     imageToRaster,
	{"jpeg", "pdf"}:    imageToPDF,
	{"jpeg", "png"}:    imageToRaster,
}

// SourceFormat returns the lower-cased extension of name without the dot.
func SourceFormat(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// NormalizeTarget lower-cases a target format and folds its aliases.
func NormalizeTarget(target string) string {
	t := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(target), "."))
	switch t {
	case "jpeg":
		return "jpg"
	case "image":
		return "images"
	case "text":
		return "txt"
	case "markdown":
		return "md"
	}
	return t
}

// Targets returns the formats a source format converts to.
func Targets(source string) []string {
	return SupportedConversions[strings.ToLower(source)]
}

// Supported reports whether source→target is a permitted pair.
func Supported(source, target string) bool {
	return slices.Contains(Targets(source), NormalizeTarget(target))
}

// OutputFilename strips the last extension of name and appends
// "_converted.<ext>".
func OutputFilename(name, ext string) string {
	base := filepath.Base(name)
	if e := filepath.Ext(base); e != "" && e != base {
		base = strings.TrimSuffix(base, e)
	}
	return base + "_converted." + ext
}

// Convert validates req, runs the routine for its format pair and packages
// the output. Every returned error is an *Error.
func (c *Converter) Convert(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	j := &job{Request: &req, source: SourceFormat(req.Name)}
	j.title = strings.TrimSuffix(filepath.Base(req.Name), filepath.Ext(req.Name))
	req.Target = NormalizeTarget(req.Target)

	log := c.cfg.Logger.With("file", req.Name, "from", j.source, "to", req.Target)

	if err := c.validate(ctx, j); err != nil {
		log.Debug("convert: rejected", "error", err)
		return nil, err
	}
	j.report(StageRead, "read")

	run := routines[pair{j.source, req.Target}]
	out, err := run(ctx, c, j)
	if err != nil {
		ce := classify(err, j.source+"→"+req.Target, KindUnknown)
		log.Warn("convert: failed", "kind", ce.Kind, "error", err)
		return nil, ce
	}

	res, err := c.finish(j, out)
	if err != nil {
		return nil, classify(err, "package", KindUnknown)
	}
	j.report(StageDone, "done")
	log.Info("convert: done", "output", res.Filename, "bytes", len(res.Data), "duration", time.Since(start))
	return res, nil
}

func (c *Converter) finish(j *job, out *output) (*Result, error) {
	switch len(out.units) {
	case 0:
		return nil, &Error{Kind: KindValidation, Err: fmt.Errorf("%s produced no output — the file has nothing to convert", j.Name)}
	case 1:
		u := out.units[0]
		return &Result{
			Filename: OutputFilename(j.Name, u.ext),
			MIMEType: MIMETypes[u.ext],
			Data:     u.data,
		}, nil
	}

	members := make([]archive.Member, len(out.units))
	names := make([]string, len(out.units))
	for i, u := range out.units {
		names[i] = archive.UnitName(out.prefix, i+1, u.ext)
		members[i] = archive.Member{Name: names[i], Data: u.data}
	}
	data, err := archive.Pack(members)
	if err != nil {
		return nil, err
	}
	return &Result{
		Filename: OutputFilename(j.Name, "zip"),
		MIMEType: MIMETypes["zip"],
		Data:     data,
		Members:  names,
	}, nil
}

// parse runs fn under the parse timeout. fn keeps running in the background
// if the deadline passes first; its result is discarded.
func parse[T any](ctx context.Context, c *Converter, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ParseTimeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			var zero T
			return zero, classify(r.err, "parse", KindParse)
		}
		return r.v, nil
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.Canceled) {
			return zero, &Error{Kind: KindUnknown, Op: "parse", Err: ctx.Err()}
		}
		return zero, &Error{Kind: KindTimeout, Op: "parse", Err: fmt.Errorf("parsing took longer than %s: %w", c.cfg.ParseTimeout, ctx.Err())}
	}
}
