// Package audit keeps a JSONL history of conversions.
package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry is one recorded conversion.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Machine    string    `json:"machine,omitempty"`
	Via        string    `json:"via"` // cli, shell, watch or http
	Source     string    `json:"source"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Output     string    `json:"output,omitempty"`
	BytesIn    int64     `json:"bytes_in"`
	BytesOut   int64     `json:"bytes_out,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Failed reports whether the conversion ended in an error.
func (e Entry) Failed() bool { return e.ErrorKind != "" }

// Logger appends entries to a history file.
type Logger struct {
	FilePath string
	Enabled  bool

	mu sync.Mutex
}

// NewLogger creates a Logger. A disabled logger or one without a path
// records nothing.
func NewLogger(filePath string, enabled bool) *Logger {
	return &Logger{FilePath: filePath, Enabled: enabled}
}

// DefaultPath returns ~/.docconv/history.jsonl.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".docconv", "history.jsonl")
	}
	return filepath.Join(home, ".docconv", "history.jsonl")
}

// Log appends a single entry. It is best-effort: failures never block a
// conversion and are not reported.
func (l *Logger) Log(_ context.Context, entry Entry) {
	if l == nil || !l.Enabled || l.FilePath == "" {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Machine == "" {
		entry.Machine, _ = os.Hostname()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.FilePath), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(l.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(data)
}

// ReadEntries reads all entries from the history file. A missing file has
// no entries.
func ReadEntries(filePath string) ([]Entry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue // skip malformed lines
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Filter selects history entries. Zero fields match everything.
type Filter struct {
	Since      time.Time
	Until      time.Time
	From       string
	To         string
	FailedOnly bool
}

// FilterEntries returns the entries matching f, in their original order.
func FilterEntries(entries []Entry, f Filter) []Entry {
	var result []Entry
	for _, e := range entries {
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
			continue
		}
		if f.From != "" && !strings.EqualFold(e.From, f.From) {
			continue
		}
		if f.To != "" && !strings.EqualFold(e.To, f.To) {
			continue
		}
		if f.FailedOnly && !e.Failed() {
			continue
		}
		result = append(result, e)
	}
	return result
}

// LogSize returns the size of the history file in bytes, or 0 if not found.
func LogSize(filePath string) int64 {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Clear truncates the history file.
func Clear(filePath string) error {
	err := os.Truncate(filePath, 0)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
