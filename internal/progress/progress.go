// Package progress renders conversion progress on the terminal.
// All output goes to stderr to avoid polluting stdout/pipes.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Bar renders an ASCII progress bar. A single conversion uses Total 100 and
// receives stage percentages through Stage; a batch uses one step per file.
type Bar struct {
	Total   int
	Current int
	Label   string
	Width   int
	Enabled bool

	out io.Writer
	mu  sync.Mutex
}

// New creates a progress bar writing to stderr.
// Automatically disabled if not a TTY, if --json is set, or DOCCONV_NO_PROGRESS=1.
func New(label string, total int) *Bar {
	return &Bar{
		Total:   total,
		Label:   label,
		Width:   30,
		Enabled: shouldEnable(),
		out:     os.Stderr,
	}
}

// NewStages creates a bar for one conversion's stage percentages.
func NewStages(label string) *Bar {
	return New(label, 100)
}

// SetOutput redirects the bar.
func (b *Bar) SetOutput(w io.Writer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out = w
}

// Increment advances the bar by 1 and redraws.
func (b *Bar) Increment(status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(b.Current+1, status)
}

// Set sets the bar to a specific value.
func (b *Bar) Set(n int, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(n, status)
}

// Stage records a conversion stage. Its signature matches
// convert.ProgressFunc.
func (b *Bar) Stage(percent int, stage string) {
	b.Set(percent, stage)
}

func (b *Bar) set(n int, status string) {
	// Stage callbacks may arrive out of order from per-page updates; the
	// bar never moves backwards.
	if n < b.Current {
		n = b.Current
	}
	if n > b.Total {
		n = b.Total
	}
	b.Current = n
	b.render(status)
}

// Finish prints a final completion line.
func (b *Bar) Finish(summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.Enabled || b.out == nil {
		return
	}
	fmt.Fprintf(b.out, "\r\033[K✓ %s\n", summary)
}

// Fail clears the bar and prints a failure line.
func (b *Bar) Fail(summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.Enabled || b.out == nil {
		return
	}
	fmt.Fprintf(b.out, "\r\033[K✗ %s\n", summary)
}

func (b *Bar) render(status string) {
	if !b.Enabled || b.out == nil {
		return
	}

	filled := 0
	if b.Total > 0 {
		filled = b.Current * b.Width / b.Total
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", b.Width-filled)

	if b.Total == 100 {
		fmt.Fprintf(b.out, "\r\033[K%s [%s] %3d%%  %s", b.Label, bar, b.Current, status)
		return
	}
	fmt.Fprintf(b.out, "\r\033[K%s [%s] %d/%d  %s", b.Label, bar, b.Current, b.Total, status)
}

// Pct returns the current percentage (0-100) of the bar.
func (b *Bar) Pct() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Total == 0 {
		return 0
	}
	return float64(b.Current) / float64(b.Total) * 100
}

func shouldEnable() bool {
	if os.Getenv("DOCCONV_NO_PROGRESS") == "1" {
		return false
	}
	if os.Getenv("DOCCONV_JSON") == "true" {
		return false
	}
	return isTTY()
}

func isTTY() bool {
	stat, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
