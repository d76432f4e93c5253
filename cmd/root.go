// Package cmd contains all CLI commands for the docconv binary.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/docconv/cmd/completion"
	cmdconfig "github.com/klytics/docconv/cmd/config"
	"github.com/klytics/docconv/cmd/convert"
	"github.com/klytics/docconv/cmd/doctor"
	"github.com/klytics/docconv/cmd/formats"
	"github.com/klytics/docconv/cmd/history"
	"github.com/klytics/docconv/cmd/serve"
	"github.com/klytics/docconv/cmd/shell"
	"github.com/klytics/docconv/cmd/version"
	cmdwatch "github.com/klytics/docconv/cmd/watch"
	"github.com/klytics/docconv/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docconv",
		Short: "Convert documents between formats",
		Long: `docconv converts word-processing documents, PDFs, presentations,
spreadsheets and images between formats, from the terminal, an interactive
shell, a watched directory or over HTTP.

Run 'docconv formats' for the supported conversions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
			if jsonOutput {
				os.Setenv("DOCCONV_JSON", "true")
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")

	rootCmd.AddCommand(convert.NewCommand())
	rootCmd.AddCommand(formats.NewCommand())
	rootCmd.AddCommand(serve.NewCommand())
	rootCmd.AddCommand(shell.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(history.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(doctor.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and exits with a code reflecting the
// failure: 1 for bad input, 2 for environment or system failures.
func Execute() {
	output.Version = version.Version
	rootCmd := NewRootCommand()
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}
	if jsonOutput {
		output.PrintJSONError(cmd.CommandPath(), err)
	} else {
		color.New(color.FgRed).Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, output.Message(err))
	}
	os.Exit(output.ExitCode(err))
}
