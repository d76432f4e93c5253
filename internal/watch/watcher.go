// Package watch converts documents as they land in watched directories.
// Rules are loaded from YAML and map a directory and a set of source
// extensions onto a target format and an output directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/klytics/docconv/internal/audit"
	"github.com/klytics/docconv/internal/formats/convert"
)

// Defaults applied by LoadConfig and New.
const (
	DefaultDebounce    = 500 * time.Millisecond
	DefaultConcurrency = 2
)

// Rule maps files in Dir onto a conversion.
type Rule struct {
	Name       string   `yaml:"name"`
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions,omitempty"`
	Target     string   `yaml:"target"`
	OutputDir  string   `yaml:"output_dir,omitempty"`
	Sheet      string   `yaml:"sheet,omitempty"`
	Recursive  bool     `yaml:"recursive,omitempty"`
}

// Config is the watcher configuration file.
type Config struct {
	Debounce    time.Duration `yaml:"debounce,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
	Rules       []Rule        `yaml:"rules"`
}

// Event records one processed file.
type Event struct {
	Time   time.Time `json:"time"`
	Path   string    `json:"path"`
	Rule   string    `json:"rule,omitempty"`
	Output string    `json:"output,omitempty"`
	Status string    `json:"status"` // converted, failed
	Kind   string    `json:"kind,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// LoadConfig reads and validates a rules file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read watch rules %s — create one with 'docconv watch --init': %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid watch rules in %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid watch rules in %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate normalizes rules and checks every extension/target pair.
func (c *Config) Validate() error {
	if len(c.Rules) == 0 {
		return fmt.Errorf("no rules defined")
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule-%d", i+1)
		}
		if r.Dir == "" {
			return fmt.Errorf("%s: dir is required", r.Name)
		}
		r.Target = convert.NormalizeTarget(r.Target)
		if r.Target == "" {
			return fmt.Errorf("%s: target is required", r.Name)
		}
		if len(r.Extensions) == 0 {
			r.Extensions = sourcesFor(r.Target)
		}
		for j, ext := range r.Extensions {
			ext = strings.ToLower(strings.TrimPrefix(ext, "."))
			r.Extensions[j] = ext
			if !convert.Supported(ext, r.Target) {
				return fmt.Errorf("%s: cannot convert %s to %s", r.Name, ext, r.Target)
			}
		}
		if len(r.Extensions) == 0 {
			return fmt.Errorf("%s: no source format converts to %s", r.Name, r.Target)
		}
	}
	return nil
}

// SampleConfig is written by 'docconv watch --init'.
func SampleConfig(dir string) *Config {
	return &Config{
		Debounce:    DefaultDebounce,
		Concurrency: DefaultConcurrency,
		Rules: []Rule{{
			Name:       "inbox-to-pdf",
			Dir:        dir,
			Extensions: []string{"docx", "pptx", "xlsx"},
			Target:     "pdf",
			OutputDir:  filepath.Join(dir, "converted"),
		}},
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func sourcesFor(target string) []string {
	var out []string
	for src := range convert.SupportedConversions {
		if convert.Supported(src, target) {
			out = append(out, src)
		}
	}
	slices.Sort(out)
	return out
}

// Watcher monitors rule directories and converts matching files. Each
// debounced event runs its own conversion; at most Concurrency run at once.
type Watcher struct {
	Config    Config
	Converter *convert.Converter
	Audit     *audit.Logger
	Logger    *slog.Logger

	// OnEvent, when set, is called after every processed file.
	OnEvent func(Event)

	mu       sync.Mutex
	events   []Event
	debounce map[string]*time.Timer
	closed   bool
	wg       sync.WaitGroup
	sem      chan struct{}
	fsw      *fsnotify.Watcher
}

// New creates a Watcher. cfg must have been validated.
func New(cfg Config, conv *convert.Converter, log *audit.Logger, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Watcher{
		Config:    cfg,
		Converter: conv,
		Audit:     log,
		Logger:    logger,
		debounce:  make(map[string]*time.Timer),
		sem:       make(chan struct{}, cfg.Concurrency),
		fsw:       fsw,
	}, nil
}

// Start watches the rule directories until ctx is cancelled, then waits
// for running conversions to finish.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.fsw.Close()

	for _, r := range w.Config.Rules {
		dir, err := filepath.Abs(r.Dir)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", r.Dir, err)
		}
		if r.Recursive {
			err = w.addRecursive(dir)
		} else {
			err = w.fsw.Add(dir)
		}
		if err != nil {
			return fmt.Errorf("could not watch %s — does the directory exist? %w", dir, err)
		}
	}
	w.Logger.Info("watch: started", "rules", len(w.Config.Rules), "debounce", w.Config.Debounce)

	for {
		select {
		case <-ctx.Done():
			w.stop()
			w.Logger.Info("watch: stopped")
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				w.stop()
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.stop()
				return nil
			}
			w.Logger.Warn("watch: watcher error", "err", err)
		}
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.debounce {
		t.Stop()
		delete(w.debounce, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	path := ev.Name
	if skipFile(path) || len(w.matchingRules(path)) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.debounce[path]; ok {
		t.Stop()
	}
	w.debounce[path] = time.AfterFunc(w.Config.Debounce, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		delete(w.debounce, path)
		w.wg.Add(1)
		w.mu.Unlock()

		defer w.wg.Done()
		w.Process(ctx, path)
	})
}

// skipFile filters editor lock files and our own outputs.
func skipFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, "~$") ||
		strings.HasPrefix(base, ".") ||
		strings.Contains(base, "_converted.")
}

func (w *Watcher) matchingRules(path string) []Rule {
	dir, _ := filepath.Abs(filepath.Dir(path))
	src := convert.SourceFormat(path)
	var out []Rule
	for _, r := range w.Config.Rules {
		if matches(r, dir, src) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r Rule, fileDir, src string) bool {
	if !slices.Contains(r.Extensions, src) {
		return false
	}
	ruleDir, err := filepath.Abs(r.Dir)
	if err != nil {
		return false
	}
	if fileDir == ruleDir {
		return true
	}
	if !r.Recursive {
		return false
	}
	rel, err := filepath.Rel(ruleDir, fileDir)
	return err == nil && !strings.HasPrefix(rel, "..")
}

// Process converts path with every matching rule. It is safe to call
// concurrently.
func (w *Watcher) Process(ctx context.Context, path string) []Event {
	var events []Event
	for _, r := range w.matchingRules(path) {
		select {
		case w.sem <- struct{}{}:
		case <-ctx.Done():
			return events
		}
		ev := w.convert(ctx, path, r)
		<-w.sem

		w.mu.Lock()
		w.events = append(w.events, ev)
		w.mu.Unlock()
		if w.OnEvent != nil {
			w.OnEvent(ev)
		}
		events = append(events, ev)
	}
	return events
}

func (w *Watcher) convert(ctx context.Context, path string, r Rule) Event {
	start := time.Now()
	ev := Event{Time: start, Path: path, Rule: r.Name}
	entry := audit.Entry{
		Via:    "watch",
		Source: path,
		From:   convert.SourceFormat(path),
		To:     r.Target,
	}
	fail := func(err error) Event {
		ce := convert.Classify(err)
		ev.Status, ev.Kind, ev.Error = "failed", ce.Kind.String(), ce.UserMessage()
		entry.ErrorKind, entry.Error = ce.Kind.String(), ce.Error()
		entry.DurationMs = time.Since(start).Milliseconds()
		w.Audit.Log(ctx, entry)
		w.Logger.Warn("watch: conversion failed", "path", path, "rule", r.Name, "kind", ev.Kind, "err", ce)
		return ev
	}

	data, err := w.Converter.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	entry.BytesIn = int64(len(data))

	res, err := w.Converter.Convert(ctx, convert.Request{
		Name:   filepath.Base(path),
		Data:   data,
		Target: r.Target,
		Sheet:  r.Sheet,
	})
	if err != nil {
		return fail(err)
	}

	outDir := r.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fail(fmt.Errorf("could not create %s: %w", outDir, err))
	}
	out := filepath.Join(outDir, res.Filename)
	if err := os.WriteFile(out, res.Data, 0644); err != nil {
		return fail(fmt.Errorf("could not write %s: %w", out, err))
	}

	ev.Status, ev.Output = "converted", out
	entry.Output, entry.BytesOut = out, int64(len(res.Data))
	entry.DurationMs = time.Since(start).Milliseconds()
	w.Audit.Log(ctx, entry)
	w.Logger.Info("watch: converted", "path", path, "rule", r.Name, "output", out)
	return ev
}

// Events returns a copy of all processed events.
func (w *Watcher) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.events)
}
