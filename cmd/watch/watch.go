// Package watch provides the "docconv watch" command for converting files
// as they arrive in a directory.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/docconv/internal/config"
	"github.com/klytics/docconv/internal/formats/convert"
	"github.com/klytics/docconv/internal/output"
	w "github.com/klytics/docconv/internal/watch"
)

// DefaultRulesPath returns ~/.docconv/watch.yaml.
func DefaultRulesPath() string {
	return config.ExpandHome("~/.docconv/watch.yaml")
}

// NewCommand creates the "watch" command with subcommands.
func NewCommand() *cobra.Command {
	var (
		rulesPath  string
		to         string
		extensions []string
		outDir     string
		recursive  bool
		debounce   string
	)

	cmd := &cobra.Command{
		Use:   "watch [directory]",
		Short: "Convert documents as they appear in a directory",
		Long: `Watch directories and convert new or modified documents.

With a directory and --to, a single rule is built from the flags. Otherwise
rules are read from a YAML file (default ~/.docconv/watch.yaml):

  debounce: 500ms
  concurrency: 2
  rules:
    - name: inbox-to-pdf
      dir: ~/inbox
      extensions: [docx, pptx, xlsx]
      target: pdf
      output_dir: ~/inbox/converted

Examples:
  docconv watch ./scans --to pdf --ext png,jpg
  docconv watch init ~/inbox
  docconv watch --rules ./watch.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rules *w.Config
			if len(args) == 1 {
				if to == "" {
					return fmt.Errorf("--to is required when watching a directory — or use --rules")
				}
				rules = &w.Config{Rules: []w.Rule{{
					Name:       filepath.Base(args[0]),
					Dir:        args[0],
					Extensions: extensions,
					Target:     to,
					OutputDir:  outDir,
					Recursive:  recursive,
				}}}
				if debounce != "" {
					if err := setDebounce(rules, debounce); err != nil {
						return err
					}
				}
				if err := rules.Validate(); err != nil {
					return err
				}
			} else {
				loaded, err := w.LoadConfig(rulesPath)
				if err != nil {
					return err
				}
				rules = loaded
			}
			for i := range rules.Rules {
				rules.Rules[i].Dir = config.ExpandHome(rules.Rules[i].Dir)
				rules.Rules[i].OutputDir = config.ExpandHome(rules.Rules[i].OutputDir)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := slog.Default()
			cc, err := cfg.ConverterConfig(logger)
			if err != nil {
				return err
			}
			watcher, err := w.New(*rules, convert.New(cc), cfg.AuditLogger(), logger)
			if err != nil {
				return err
			}

			jsonFlag, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()
			watcher.OnEvent = func(ev w.Event) {
				if jsonFlag {
					output.PrintJSON("watch", ev)
					return
				}
				if ev.Status == "converted" {
					color.New(color.FgGreen).Fprint(out, "✓ ")
					fmt.Fprintf(out, "%s → %s\n", ev.Path, ev.Output)
					return
				}
				color.New(color.FgRed).Fprintf(out, "✗ %s: %s\n", ev.Path, ev.Error)
			}

			if !jsonFlag {
				for _, r := range rules.Rules {
					fmt.Fprintf(out, "Watching %s: %s → %s\n", r.Dir, strings.Join(r.Extensions, ", "), r.Target)
				}
				fmt.Fprintln(out, "Press Ctrl+C to stop")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watcher.Start(ctx)
		},
	}

	cmd.PersistentFlags().StringVar(&rulesPath, "rules", DefaultRulesPath(), "Rules file")
	cmd.Flags().StringVar(&to, "to", "", "Target format for a directory given on the command line")
	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "Source extensions (default: every format that converts to --to)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Output directory (default: next to the input)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch subdirectories too")
	cmd.Flags().StringVar(&debounce, "debounce", "", "Wait this long after the last write (e.g. 500ms)")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newRulesCmd())
	return cmd
}

func setDebounce(c *w.Config, s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid --debounce %q — use a value like 500ms: %w", s, err)
	}
	c.Debounce = d
	return nil
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a sample rules file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rulesPath, _ := cmd.Flags().GetString("rules")
			if rulesPath == "" {
				rulesPath = DefaultRulesPath()
			}
			if _, err := os.Stat(rulesPath); err == nil && !force {
				return fmt.Errorf("%s already exists — pass --force to overwrite", rulesPath)
			}
			dir := "~/inbox"
			if len(args) == 1 {
				dir = args[0]
			}
			if err := w.SampleConfig(dir).Save(rulesPath); err != nil {
				return fmt.Errorf("could not write %s: %w", rulesPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", rulesPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing rules file")
	return cmd
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Show the configured watch rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rulesPath, _ := cmd.Flags().GetString("rules")
			if rulesPath == "" {
				rulesPath = DefaultRulesPath()
			}
			c, err := w.LoadConfig(rulesPath)
			if err != nil {
				return err
			}
			if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
				return output.PrintJSON("watch rules", c)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rules:       %s\n", rulesPath)
			fmt.Fprintf(out, "Debounce:    %s\n", c.Debounce)
			fmt.Fprintf(out, "Concurrency: %d\n", c.Concurrency)
			for _, r := range c.Rules {
				dest := r.OutputDir
				if dest == "" {
					dest = "(next to input)"
				}
				fmt.Fprintf(out, "  [%s] %s: %s → %s, output %s\n",
					r.Name, r.Dir, strings.Join(r.Extensions, ","), r.Target, dest)
			}
			return nil
		},
	}
}
