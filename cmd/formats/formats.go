// Package formats provides the "docconv formats" command.
package formats

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klytics/docconv/internal/formats/convert"
	"github.com/klytics/docconv/internal/formats/pdfdoc"
	"github.com/klytics/docconv/internal/output"
)

// Entry is one source format and its targets.
type Entry struct {
	Source  string   `json:"source"`
	Targets []string `json:"targets"`
}

// NewCommand creates the "formats" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats [ext]",
		Short: "List supported conversions",
		Example: `  docconv formats
  docconv formats pdf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := List()
			if len(args) == 1 {
				src := strings.ToLower(strings.TrimPrefix(args[0], "."))
				targets := convert.Targets(src)
				if len(targets) == 0 {
					return fmt.Errorf("unsupported file type %q — accepted: %s",
						src, strings.Join(convert.AcceptedExtensions(), ", "))
				}
				entries = []Entry{{Source: src, Targets: targets}}
			}

			if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
				return output.PrintJSON("formats", entries)
			}
			Write(cmd.OutOrStdout(), entries)
			return nil
		},
	}
}

// List returns every supported source format, sorted.
func List() []Entry {
	entries := make([]Entry, 0, len(convert.SupportedConversions))
	for src, targets := range convert.SupportedConversions {
		entries = append(entries, Entry{Source: src, Targets: targets})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Source < entries[j].Source })
	return entries
}

// rasterNote is printed under the list when pdf → images is not built in.
const rasterNote = "\n  pdf → images needs a build with -tags mupdf\n"

// Write prints entries one per line.
func Write(w io.Writer, entries []Entry) {
	pdf := false
	for _, e := range entries {
		fmt.Fprintf(w, "  .%-5s → %s\n", e.Source, strings.Join(e.Targets, ", "))
		pdf = pdf || e.Source == "pdf"
	}
	if pdf && !pdfdoc.RasterAvailable {
		fmt.Fprint(w, rasterNote)
	}
}
