// Package version provides the version command for the docconv CLI.
package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/klytics/docconv/internal/formats/pdfdoc"
	"github.com/klytics/docconv/internal/output"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Info is the JSON form of the version command.
type Info struct {
	Version string `json:"version"`
	Go      string `json:"go"`
	Mupdf   bool   `json:"mupdf"`
}

// NewCommand returns the version subcommand.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docconv version",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := Info{Version: Version, Go: runtime.Version(), Mupdf: pdfdoc.RasterAvailable}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return output.PrintJSON("version", info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "docconv %s (%s", info.Version, info.Go)
			if info.Mupdf {
				fmt.Fprint(cmd.OutOrStdout(), ", mupdf")
			}
			fmt.Fprintln(cmd.OutOrStdout(), ")")
			return nil
		},
	}
}
