// Package shell provides the interactive docconv REPL: open a file once,
// then convert it to as many targets as needed.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"

	"github.com/klytics/docconv/internal/audit"
	"github.com/klytics/docconv/internal/formats/convert"
)

// Session holds the state of one interactive session. Each convert builds
// a fresh request from the open file, so nothing leaks between conversions.
type Session struct {
	Converter      *convert.Converter
	Audit          *audit.Logger
	HistoryFile    string
	CommandHistory []string
	StartTime      time.Time

	// Open file.
	Path   string
	Data   []byte
	Target string
	Sheet  string

	KnownCommands []string
}

// NewSession creates a session converting through conv.
func NewSession(conv *convert.Converter, log *audit.Logger) *Session {
	home, _ := os.UserHomeDir()
	return &Session{
		Converter:   conv,
		Audit:       log,
		HistoryFile: filepath.Join(home, ".docconv", "shell_history"),
		StartTime:   time.Now(),
		KnownCommands: []string{
			"open", "info", "formats", "to", "sheet", "convert",
			"clear", "history", "help", "exit", "quit",
		},
	}
}

// Run starts the REPL loop. Blocks until 'exit' or Ctrl+D.
func (s *Session) Run(ctx context.Context) error {
	os.MkdirAll(filepath.Dir(s.HistoryFile), 0755)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     s.HistoryFile,
		AutoComplete:    readline.NewPrefixCompleter(s.buildCompleter()...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("could not start shell — is stdin a terminal? %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	fmt.Fprintln(out, "docconv interactive shell")
	fmt.Fprintln(out, "Type 'help' for commands, 'exit' to quit.")
	fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or interrupt
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Fprintf(out, "\nSession ended. %d commands run in %s.\n",
				len(s.CommandHistory), formatDuration(time.Since(s.StartTime)))
			return nil
		}

		output, err := s.Eval(ctx, line)
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "Error: %s\n", err)
		} else if output != "" {
			fmt.Fprint(out, output)
			if !strings.HasSuffix(output, "\n") {
				fmt.Fprintln(out)
			}
		}
		rl.SetPrompt(s.prompt())
	}
	return nil
}

// Eval runs a single command line and returns its output.
func (s *Session) Eval(ctx context.Context, line string) (string, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return "", nil
	}
	s.CommandHistory = append(s.CommandHistory, line)

	var b strings.Builder
	switch args[0] {
	case "help":
		s.printHelp(&b)
	case "history":
		for i, cmd := range s.CommandHistory {
			fmt.Fprintf(&b, "  %d  %s\n", i+1, cmd)
		}
	case "open":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: open <file>")
		}
		return s.open(args[1])
	case "info":
		if s.Path == "" {
			return "No file open.", nil
		}
		fmt.Fprintf(&b, "File:    %s (%s)\n", s.Path, humanize.IBytes(uint64(len(s.Data))))
		fmt.Fprintf(&b, "Targets: %s\n", strings.Join(convert.Targets(convert.SourceFormat(s.Path)), ", "))
		if s.Target != "" {
			fmt.Fprintf(&b, "To:      %s\n", s.Target)
		}
		if s.Sheet != "" {
			fmt.Fprintf(&b, "Sheet:   %s\n", s.Sheet)
		}
	case "formats":
		s.printFormats(&b, args[1:])
	case "to":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: to <format>")
		}
		target := convert.NormalizeTarget(args[1])
		if s.Path != "" {
			src := convert.SourceFormat(s.Path)
			if !convert.Supported(src, target) {
				return "", fmt.Errorf("%s cannot be converted to %s — try: %s",
					src, target, strings.Join(convert.Targets(src), ", "))
			}
		}
		s.Target = target
		fmt.Fprintf(&b, "Target set to %s", target)
	case "sheet":
		if len(args) < 2 {
			s.Sheet = ""
			return "Sheet cleared, the first sheet is used.", nil
		}
		s.Sheet = strings.Join(args[1:], " ")
		fmt.Fprintf(&b, "Sheet set to %q", s.Sheet)
	case "convert":
		out := ""
		if len(args) > 1 {
			out = args[1]
		}
		return s.convert(ctx, out)
	case "clear":
		s.Path, s.Data, s.Target, s.Sheet = "", nil, "", ""
		return "Cleared.", nil
	default:
		return "", fmt.Errorf("unknown command %q — type 'help' for the list", args[0])
	}
	return b.String(), nil
}

func (s *Session) open(path string) (string, error) {
	data, err := s.Converter.ReadFile(path)
	if err != nil {
		return "", err
	}
	src := convert.SourceFormat(path)
	targets := convert.Targets(src)
	if len(targets) == 0 {
		return "", fmt.Errorf("unsupported file type %q — run 'formats' to list what can be opened", src)
	}
	s.Path, s.Data, s.Sheet = path, data, ""
	if !convert.Supported(src, s.Target) {
		s.Target = ""
	}
	return fmt.Sprintf("Opened %s (%s). Targets: %s",
		filepath.Base(path), humanize.IBytes(uint64(len(data))), strings.Join(targets, ", ")), nil
}

func (s *Session) convert(ctx context.Context, out string) (string, error) {
	if s.Path == "" {
		return "", fmt.Errorf("no file open — use 'open <file>' first")
	}
	if s.Target == "" {
		return "", fmt.Errorf("no target set — use 'to <format>' first")
	}

	start := time.Now()
	req := convert.Request{
		Name:   filepath.Base(s.Path),
		Data:   s.Data,
		Target: s.Target,
		Sheet:  s.Sheet,
	}
	res, err := s.Converter.Convert(ctx, req)

	entry := audit.Entry{
		Via:        "shell",
		Source:     s.Path,
		From:       convert.SourceFormat(s.Path),
		To:         s.Target,
		BytesIn:    int64(len(s.Data)),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		ce := convert.Classify(err)
		entry.ErrorKind, entry.Error = ce.Kind.String(), ce.Error()
		s.Audit.Log(ctx, entry)
		return "", fmt.Errorf("%s", ce.UserMessage())
	}

	if out == "" {
		out = filepath.Join(filepath.Dir(s.Path), res.Filename)
	}
	if err := os.WriteFile(out, res.Data, 0644); err != nil {
		return "", fmt.Errorf("could not write %s: %w", out, err)
	}
	entry.Output, entry.BytesOut = out, int64(len(res.Data))
	s.Audit.Log(ctx, entry)

	msg := fmt.Sprintf("Wrote %s (%s)", out, humanize.IBytes(uint64(len(res.Data))))
	if len(res.Members) > 0 {
		msg += fmt.Sprintf(", %d files", len(res.Members))
	}
	return msg, nil
}

func (s *Session) printFormats(w io.Writer, args []string) {
	sources := make([]string, 0, len(convert.SupportedConversions))
	for src := range convert.SupportedConversions {
		sources = append(sources, src)
	}
	if len(args) > 0 {
		sources = []string{strings.TrimPrefix(strings.ToLower(args[0]), ".")}
	}
	sort.Strings(sources)
	for _, src := range sources {
		targets := convert.Targets(src)
		if len(targets) == 0 {
			fmt.Fprintf(w, "  %-5s (not supported)\n", src)
			continue
		}
		fmt.Fprintf(w, "  %-5s → %s\n", src, strings.Join(targets, ", "))
	}
}

func (s *Session) printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  open <file>       load a document")
	fmt.Fprintln(w, "  info              show the open document and its targets")
	fmt.Fprintln(w, "  formats [ext]     list supported conversions")
	fmt.Fprintln(w, "  to <format>       choose the target format")
	fmt.Fprintln(w, "  sheet [name]      choose the spreadsheet sheet")
	fmt.Fprintln(w, "  convert [out]     convert and write the result")
	fmt.Fprintln(w, "  clear             close the open document")
	fmt.Fprintln(w, "  history           show command history")
	fmt.Fprintln(w, "  exit              leave the shell")
}

// Complete returns tab-completion candidates for the given input.
func (s *Session) Complete(input string) []string {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return s.KnownCommands
	}
	if len(parts) == 1 && !strings.HasSuffix(input, " ") {
		var matches []string
		for _, cmd := range s.KnownCommands {
			if strings.HasPrefix(cmd, parts[0]) {
				matches = append(matches, cmd)
			}
		}
		sort.Strings(matches)
		return matches
	}
	if parts[0] != "to" {
		return nil
	}
	prefix := ""
	if len(parts) == 2 && !strings.HasSuffix(input, " ") {
		prefix = parts[1]
	}
	var matches []string
	for _, t := range s.targetCandidates() {
		if strings.HasPrefix(t, prefix) {
			matches = append(matches, t)
		}
	}
	return matches
}

// targetCandidates lists targets of the open file, or every known target.
func (s *Session) targetCandidates() []string {
	if s.Path != "" {
		return convert.Targets(convert.SourceFormat(s.Path))
	}
	seen := map[string]bool{}
	var all []string
	for _, targets := range convert.SupportedConversions {
		for _, t := range targets {
			if !seen[t] {
				seen[t] = true
				all = append(all, t)
			}
		}
	}
	sort.Strings(all)
	return all
}

func (s *Session) buildCompleter() []readline.PrefixCompleterInterface {
	var items []readline.PrefixCompleterInterface
	for _, cmd := range s.KnownCommands {
		switch cmd {
		case "open":
			items = append(items, readline.PcItem(cmd, readline.PcItemDynamic(listFiles)))
		case "to":
			var subs []readline.PrefixCompleterInterface
			for _, t := range s.targetCandidates() {
				subs = append(subs, readline.PcItem(t))
			}
			items = append(items, readline.PcItem(cmd, subs...))
		default:
			items = append(items, readline.PcItem(cmd))
		}
	}
	return items
}

// listFiles offers convertible files in the working directory.
func listFiles(string) []string {
	entries, err := os.ReadDir(".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && len(convert.Targets(convert.SourceFormat(e.Name()))) > 0 {
			names = append(names, e.Name())
		}
	}
	return names
}

func (s *Session) prompt() string {
	if s.Path == "" {
		return "docconv> "
	}
	p := "docconv [" + filepath.Base(s.Path)
	if s.Target != "" {
		p += " → " + s.Target
	}
	return p + "]> "
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	m := int(d.Minutes())
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, sec)
}
