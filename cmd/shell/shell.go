// Package shell provides the "docconv shell" interactive REPL command.
package shell

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/klytics/docconv/internal/config"
	"github.com/klytics/docconv/internal/formats/convert"
	shellpkg "github.com/klytics/docconv/internal/shell"
)

// NewCommand creates the "shell" command.
func NewCommand() *cobra.Command {
	var (
		evalCmd  string
		openPath string
	)

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive conversion shell",
		Long: `Start an interactive REPL with tab completion. Open a document once and
convert it to several targets without retyping paths.

  docconv> open report.docx
  docconv [report.docx]> to pdf
  docconv [report.docx → pdf]> convert`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cc, err := cfg.ConverterConfig(slog.Default())
			if err != nil {
				return err
			}
			session := shellpkg.NewSession(convert.New(cc), cfg.AuditLogger())

			if openPath != "" {
				msg, err := session.Eval(cmd.Context(), "open "+openPath)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			if evalCmd != "" {
				out, err := session.Eval(cmd.Context(), evalCmd)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			return session.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&evalCmd, "eval", "", "Run a single shell command and exit")
	cmd.Flags().StringVar(&openPath, "open", "", "Open a document on start")
	return cmd
}
