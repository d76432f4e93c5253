// Package convert provides the "docconv convert" CLI command.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/docconv/internal/audit"
	"github.com/klytics/docconv/internal/config"
	conv "github.com/klytics/docconv/internal/formats/convert"
	"github.com/klytics/docconv/internal/output"
	"github.com/klytics/docconv/internal/progress"
)

// Result describes one converted file.
type Result struct {
	Input    string   `json:"input"`
	Output   string   `json:"output,omitempty"`
	Format   string   `json:"format"`
	Bytes    int      `json:"bytes,omitempty"`
	Members  []string `json:"members,omitempty"`
	Status   string   `json:"status"`
	Kind     string   `json:"kind,omitempty"`
	Error    string   `json:"error,omitempty"`
	Duration string   `json:"duration"`
}

type options struct {
	to          string
	output      string
	outDir      string
	sheet       string
	concurrency int
}

// NewCommand creates the "convert" command.
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "convert <file|glob> --to <format>",
		Short: "Convert a document to another format",
		Long: `Convert documents between formats without an office suite.

Supported conversions:
  .docx        → pdf, html, txt, md
  .pdf         → docx, html, txt, images
  .pptx        → pdf, images
  .xlsx, .xls  → pdf, csv, json
  .png         → pdf, jpg
  .jpg, .jpeg  → pdf, png

Results with several files (pdf → images) are written as a ZIP archive.
pdf → images renders with MuPDF and needs a build with -tags mupdf.

Examples:
  docconv convert report.docx --to pdf
  docconv convert deck.pptx --to images -o slides.zip
  docconv convert data.xlsx --to csv --sheet Revenue
  docconv convert 'inbox/*.docx' --to pdf --out-dir ./pdf --concurrency 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.to == "" {
				return fmt.Errorf("--to is required — run 'docconv formats' to list targets")
			}
			jsonFlag, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cc, err := cfg.ConverterConfig(slog.Default())
			if err != nil {
				return err
			}
			r := &runner{
				conv:  conv.New(cc),
				audit: cfg.AuditLogger(),
				opts:  opts,
				out:   cmd.OutOrStdout(),
				json:  jsonFlag,
			}

			if strings.ContainsAny(args[0], "*?[") {
				return r.batch(cmd.Context(), args[0])
			}
			res, err := r.single(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonFlag {
				return output.PrintJSON("convert", res)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.to, "to", "", "Target format (pdf, html, txt, md, docx, images, csv, json, png, jpg)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path (single file only)")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "Output directory (default: next to the input)")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Sheet name for spreadsheet conversions (default: first sheet)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 1, "Number of parallel conversions for a glob")

	return cmd
}

type runner struct {
	conv  *conv.Converter
	audit *audit.Logger
	opts  options
	out   io.Writer
	json  bool
}

// single converts one file with a stage progress bar.
func (r *runner) single(ctx context.Context, path string) (*Result, error) {
	bar := progress.NewStages(filepath.Base(path))
	res, err := r.run(ctx, path, r.opts.output, bar.Stage)
	if err != nil {
		bar.Fail(fmt.Sprintf("%s: %s", filepath.Base(path), output.Message(err)))
		return nil, err
	}
	bar.Finish(res.Output)
	if !r.json && !bar.Enabled {
		r.printResult(res)
	}
	return res, nil
}

// batch converts every match of pattern. Each file is an independent
// request; at most --concurrency run at once.
func (r *runner) batch(ctx context.Context, pattern string) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched pattern %q", pattern)
	}
	if r.opts.output != "" {
		return fmt.Errorf("-o cannot be used with a glob — use --out-dir instead")
	}

	concurrency := r.opts.concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	bar := progress.New("converting", len(files))

	results := make([]*Result, len(files))
	errs := make([]error, len(files))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(idx int, f string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := r.run(ctx, f, "", nil)
			results[idx], errs[idx] = res, err
			if err != nil {
				bar.Fail(fmt.Sprintf("%s: %s", filepath.Base(f), output.Message(err)))
			}
			bar.Increment(filepath.Base(f))
		}(i, file)
	}
	wg.Wait()

	failed := 0
	var firstErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = err
		}
		ce := conv.Classify(err)
		results[i] = &Result{
			Input:  files[i],
			Format: conv.NormalizeTarget(r.opts.to),
			Status: "failed",
			Kind:   ce.Kind.String(),
			Error:  ce.UserMessage(),
		}
	}

	if r.json {
		if err := output.PrintJSON("convert", results); err != nil {
			return err
		}
	} else {
		bar.Finish(fmt.Sprintf("%d files", len(files)))
		for _, res := range results {
			r.printResult(res)
		}
		fmt.Fprintf(r.out, "\nConverted %d files. %d succeeded, %d failed.\n", len(files), len(files)-failed, failed)
	}
	if failed > 0 {
		return &batchError{failed: failed, total: len(files), first: firstErr}
	}
	return nil
}

// batchError reports a batch with failures. It unwraps to the first failure
// so the exit code follows that failure's kind.
type batchError struct {
	failed, total int
	first         error
}

func (e *batchError) Error() string {
	return fmt.Sprintf("%d of %d conversions failed: %s", e.failed, e.total, conv.Classify(e.first).UserMessage())
}

func (e *batchError) Unwrap() error { return e.first }

func (r *runner) run(ctx context.Context, path, outPath string, onProgress conv.ProgressFunc) (*Result, error) {
	start := time.Now()
	target := conv.NormalizeTarget(r.opts.to)
	entry := audit.Entry{
		Via:    "cli",
		Source: path,
		From:   conv.SourceFormat(path),
		To:     target,
	}
	defer func() {
		entry.DurationMs = time.Since(start).Milliseconds()
		r.audit.Log(ctx, entry)
	}()
	fail := func(err error) (*Result, error) {
		ce := conv.Classify(err)
		entry.ErrorKind, entry.Error = ce.Kind.String(), ce.Error()
		return nil, err
	}

	data, err := r.conv.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	entry.BytesIn = int64(len(data))

	res, err := r.conv.Convert(ctx, conv.Request{
		Name:     filepath.Base(path),
		Data:     data,
		Target:   target,
		Sheet:    r.opts.sheet,
		Progress: onProgress,
	})
	if err != nil {
		return fail(err)
	}

	if outPath == "" {
		dir := r.opts.outDir
		if dir == "" {
			dir = filepath.Dir(path)
		}
		outPath = filepath.Join(dir, res.Filename)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fail(fmt.Errorf("could not create output directory %s: %w", filepath.Dir(outPath), err))
	}
	if err := os.WriteFile(outPath, res.Data, 0644); err != nil {
		return fail(fmt.Errorf("could not write %s: %w", outPath, err))
	}
	entry.Output, entry.BytesOut = outPath, int64(len(res.Data))

	return &Result{
		Input:    path,
		Output:   outPath,
		Format:   target,
		Bytes:    len(res.Data),
		Members:  res.Members,
		Status:   "converted",
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}, nil
}

func (r *runner) printResult(res *Result) {
	if res.Status != "converted" {
		color.New(color.FgRed).Fprintf(r.out, "✗ %s: %s\n", res.Input, res.Error)
		return
	}
	line := fmt.Sprintf("%s → %s (%s", res.Input, res.Output, humanize.IBytes(uint64(res.Bytes)))
	if len(res.Members) > 0 {
		line += fmt.Sprintf(", %d files", len(res.Members))
	}
	color.New(color.FgGreen).Fprint(r.out, "✓ ")
	fmt.Fprintf(r.out, "%s)\n", line)
}
