// Package completion provides shell completion generation commands.
package completion

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type generator struct {
	install string
	gen     func(root *cobra.Command, w io.Writer) error
}

var generators = map[string]generator{
	"bash": {
		install: "docconv completion bash > /etc/bash_completion.d/docconv",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	},
	"zsh": {
		install: "docconv completion zsh > ~/.zsh/completions/_docconv",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	},
	"fish": {
		install: "docconv completion fish > ~/.config/fish/completions/docconv.fish",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	},
	"powershell": {
		install: "docconv completion powershell >> $PROFILE",
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
	},
}

// NewCommand returns the completion command.
func NewCommand(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completions",
		Long: `Generate shell completion scripts for docconv.

Install instructions:
  Bash:       docconv completion bash > /etc/bash_completion.d/docconv
              echo 'source <(docconv completion bash)' >> ~/.bashrc
  Zsh:        docconv completion zsh > ~/.zsh/completions/_docconv
  Fish:       docconv completion fish > ~/.config/fish/completions/docconv.fish
  PowerShell: docconv completion powershell >> $PROFILE`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, ok := generators[args[0]]
			if !ok {
				return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish, powershell)", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# docconv %s completion\n# Install: %s\n\n", args[0], g.install)
			return g.gen(rootCmd, out)
		},
	}
}
