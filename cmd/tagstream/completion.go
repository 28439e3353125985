package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/tagstream/pkg/cli"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for tagstream.

To load completions:

Bash:
  $ source <(tagstream completion bash)
  # To load permanently:
  $ tagstream completion bash > /etc/bash_completion.d/tagstream

Zsh:
  $ tagstream completion zsh > "${fpath[1]}/_tagstream"
  $ compinit

Fish:
  $ tagstream completion fish | source
  # To load permanently:
  $ tagstream completion fish > ~/.config/fish/completions/tagstream.fish

PowerShell:
  PS> tagstream completion powershell | Out-String | Invoke-Expression
  # To load permanently, add to your PowerShell profile
`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(w, true)
		case "zsh":
			return rootCmd.GenZshCompletion(w)
		case "fish":
			return rootCmd.GenFishCompletion(w, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(w)
		default:
			return cli.NewConfigError("shell", "unsupported shell", fmt.Errorf("%q", args[0]))
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
