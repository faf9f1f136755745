package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smykla-skalski/launchkit/pkg/function"
)

var matchCmd = &cobra.Command{
	Use:   "match <path>",
	Short: "List plugins able to act on a file",
	Long: `List the active plugins whose supported extensions match path. Matching
only looks at the extension, ignoring case; the file does not need to exist.

Exits with status 1 when no plugin matches.

Examples:
  launchkit match notes.lnk
  launchkit match ./build.sh`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	env, err := setupEnvironment("match")
	if err != nil {
		return err
	}
	defer env.Close()

	registry, loadErr := env.loadRegistry()
	defer registry.Close() //nolint:errcheck // best effort on exit

	reportLoadErrors(cmd.ErrOrStderr(), loadErr)

	path := args[0]
	out := cmd.OutOrStdout()
	theme := env.theme(os.Stdout)

	eligible := registry.Eligible(path)
	if len(eligible) == 0 {
		ext := function.ExtensionOf(path)
		if ext == "" {
			ext = "(none)"
		}

		fmt.Fprintf(out, "No plugin supports %s (extension %s)\n", path, ext)

		return exitWith(ExitCodeError, nil)
	}

	for _, inst := range eligible {
		fmt.Fprintf(out, "%s\t%s\n", theme.Name.Render(inst.Name()), inst.Descriptor().DisplayName())
	}

	return nil
}
