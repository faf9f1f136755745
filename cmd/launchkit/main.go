// Package main provides the CLI entry point for launchkit.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/launchkit/internal/crashdump"
)

const (
	// ExitCodeOK indicates the command succeeded.
	ExitCodeOK = 0

	// ExitCodeError indicates the command failed.
	ExitCodeError = 1

	// ExitCodeCrash indicates an unexpected panic/crash occurred.
	ExitCodeCrash = 3
)

var (
	logLevelFlag   string
	debugFlag      bool
	timeoutFlag    string
	noColorFlag    bool
	pluginDirFlag  string
	noBuiltinsFlag bool
	noDiscoverFlag bool
	openerFlag     string

	// crashRecorder writes the dump when a panic reaches main.
	// Set once the configuration is loaded.
	crashRecorder *crashdump.Recorder

	// crashContext describes the call in flight for crash recovery.
	// Set by run before a definition is dispatched.
	crashContext *crashdump.ContextInfo
)

// exitError ends the process with code. A nil err means the command already
// reported the failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}

	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			handlePanic(r, nil)

			exitCode = ExitCodeCrash
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.err)
			}

			return exitErr.code
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return ExitCodeError
	}

	return ExitCodeOK
}

var rootCmd = &cobra.Command{
	Use:   "launchkit",
	Short: "Run file-acting plugin functions",
	Long: `launchkit loads plugin functions (built-in, Go, exec and Lua) and runs
them against files: open a shortcut, run a script with parameters, or anything
a third-party plugin declares support for.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if versionRequested {
			fmt.Fprint(cmd.OutOrStdout(), versionString())

			return nil
		}

		return cmd.Help()
	},
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, error)")
	flags.BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	flags.StringVar(&timeoutFlag, "timeout", "", "Default timeout for host operations (e.g. 10s)")
	flags.BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	flags.StringVar(&pluginDirFlag, "plugin-dir", "", "Directory scanned for plugin manifests")
	flags.BoolVar(&noBuiltinsFlag, "no-builtins", false, "Do not load the built-in plugins")
	flags.BoolVar(&noDiscoverFlag, "no-discover", false, "Do not scan the plugin directory")
	flags.StringVar(
		&openerFlag,
		"opener",
		"",
		"Command used to open files, e.g. \"xdg-open\" or \"gio open\"",
	)
}

// buildFlagsMap converts CLI flags to a map for the config provider.
func buildFlagsMap() map[string]any {
	flags := make(map[string]any)

	if logLevelFlag != "" {
		flags["log-level"] = logLevelFlag
	}

	if debugFlag {
		flags["debug"] = true
	}

	if timeoutFlag != "" {
		flags["timeout"] = timeoutFlag
	}

	if noColorFlag {
		flags["no-color"] = true
	}

	if pluginDirFlag != "" {
		flags["plugin-dir"] = pluginDirFlag
	}

	if noBuiltinsFlag {
		flags["no-builtins"] = true
	}

	if noDiscoverFlag {
		flags["no-discover"] = true
	}

	if opener := strings.Fields(openerFlag); len(opener) > 0 {
		flags["opener"] = opener
	}

	return flags
}

// handlePanic handles a recovered panic value by creating a crash dump.
// stack is nil when the panic was recovered on the current goroutine.
func handlePanic(recovered any, stack []byte) {
	fmt.Fprintf(os.Stderr, "panic: %v\n", recovered)

	recorder := crashRecorder
	if recorder == nil {
		recorder = crashdump.NewRecorder(version, nil, nil)
	}

	path, err := recorder.RecordWithStack(recovered, stack, crashContext)
	if err != nil {
		if !errors.Is(err, crashdump.ErrDisabled) {
			fmt.Fprintf(os.Stderr, "failed to write crash dump: %v\n", err)
		}

		return
	}

	fmt.Fprintf(os.Stderr, "crash dump saved to: %s\n", path)
}
