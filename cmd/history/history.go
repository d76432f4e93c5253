// Package history provides the "docconv history" command for viewing past
// conversions.
package history

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/docconv/internal/audit"
	"github.com/klytics/docconv/internal/config"
	"github.com/klytics/docconv/internal/output"
)

// NewCommand creates the "history" command with its subcommands.
func NewCommand() *cobra.Command {
	var (
		last   int
		since  string
		from   string
		to     string
		failed bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent conversions",
		Long: `Show the conversion history recorded in audit.path.

Every conversion run from the CLI, the shell, the watcher or the HTTP server
is recorded, including failures and their error kind.`,
		Example: `  docconv history --last 50
  docconv history --failed --since 2025-01-01
  docconv history --from pdf --to docx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := historyPath()
			if err != nil {
				return err
			}
			entries, err := audit.ReadEntries(path)
			if err != nil {
				return fmt.Errorf("could not read history %s: %w", path, err)
			}

			f := audit.Filter{From: from, To: to, FailedOnly: failed}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date: %w (use YYYY-MM-DD)", err)
				}
				f.Since = t
			}
			filtered := audit.FilterEntries(entries, f)
			if last > 0 && len(filtered) > last {
				filtered = filtered[len(filtered)-last:]
			}

			if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
				return output.PrintJSON("history", filtered)
			}
			if len(filtered) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversions recorded.")
				return nil
			}
			return output.Print(Render(filtered))
		},
	}

	cmd.Flags().IntVar(&last, "last", 20, "Show last N entries (0 for all)")
	cmd.Flags().StringVar(&since, "since", "", "Only entries since date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&from, "from", "", "Filter by source format")
	cmd.Flags().StringVar(&to, "to", "", "Filter by target format")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only failed conversions")

	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatusCmd())
	return cmd
}

// Render formats entries as a table.
func Render(entries []audit.Entry) string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "TIME\tVIA\tSOURCE\tCONVERSION\tSIZE\tDURATION\tRESULT\n")
	for _, e := range entries {
		result := color.GreenString("ok")
		if e.Failed() {
			result = color.RedString(e.ErrorKind)
		}
		size := humanize.IBytes(uint64(e.BytesIn))
		if e.BytesOut > 0 {
			size += " → " + humanize.IBytes(uint64(e.BytesOut))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s → %s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Via,
			filepath.Base(e.Source),
			e.From, e.To,
			size,
			formatDuration(e.DurationMs),
			result,
		)
	}
	tw.Flush()
	return sb.String()
}

func formatDuration(ms int64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%dms", ms)
}

func historyPath() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.AuditLogger().FilePath, nil
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the conversion history",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := historyPath()
			if err != nil {
				return err
			}
			if err := audit.Clear(path); err != nil {
				return fmt.Errorf("could not clear %s: %w", path, err)
			}
			if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
				return output.PrintJSON("history clear", map[string]string{"cleared": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "History cleared: %s\n", path)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show history file path and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := historyPath()
			if err != nil {
				return err
			}
			size := audit.LogSize(path)
			entries, _ := audit.ReadEntries(path)
			failed := len(audit.FilterEntries(entries, audit.Filter{FailedOnly: true}))

			if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
				return output.PrintJSON("history status", map[string]any{
					"path":    path,
					"size":    size,
					"entries": len(entries),
					"failed":  failed,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "History: %s\n", path)
			if size == 0 {
				fmt.Fprintln(out, "Size:    empty (no entries)")
			} else {
				fmt.Fprintf(out, "Size:    %s\n", humanize.IBytes(uint64(size)))
			}
			fmt.Fprintf(out, "Entries: %d (%d failed)\n", len(entries), failed)
			return nil
		},
	}
}
