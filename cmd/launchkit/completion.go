package main

import (
	"io"
	"maps"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var completionScripts = map[string]func(cmd *cobra.Command, w io.Writer) error{
	"bash":       (*cobra.Command).GenBashCompletion,
	"zsh":        (*cobra.Command).GenZshCompletion,
	"fish":       func(cmd *cobra.Command, w io.Writer) error { return cmd.GenFishCompletion(w, true) },
	"powershell": (*cobra.Command).GenPowerShellCompletionWithDesc,
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Generate shell completion script",
	Long: `Print the completion script for bash, zsh, fish or powershell.

  source <(launchkit completion bash)
  launchkit completion zsh > "${fpath[1]}/_launchkit"
  launchkit completion fish > ~/.config/fish/completions/launchkit.fish
  launchkit completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             slices.Sorted(maps.Keys(completionScripts)),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := completionScripts[args[0]]

		return errors.Wrapf(gen(cmd.Root(), cmd.OutOrStdout()), "generating %s completion", args[0])
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
