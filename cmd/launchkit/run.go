package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	internalcolor "github.com/smykla-skalski/launchkit/internal/color"
	"github.com/smykla-skalski/launchkit/internal/crashdump"
	"github.com/smykla-skalski/launchkit/internal/dispatcher"
	"github.com/smykla-skalski/launchkit/internal/plugin"
)

const maxDefaultNameRunes = dispatcher.MaxDisplayNameLength

var (
	runNameFlag     string
	runParamsFlag   string
	runForceFlag    bool
	runBatchFlag    string
	runParallelFlag int
	runJSONFlag     bool
)

var runCmd = &cobra.Command{
	Use:   "run [<plugin> <path>]",
	Short: "Run a plugin function on a file",
	Long: `Run a user function: a display name, a plugin and a target file, plus an
optional free-form parameter string handed to the plugin.

The definition is validated first: the display name must be 5 to 25
characters, the plugin must be loaded and active, the file must exist and its
extension must be supported by the plugin. --force skips validation.

With --batch, definitions are read from a YAML file:

  functions:
    - display_name: Open notes
      plugin: shortcut
      path: notes.lnk
    - display_name: Build site
      plugin: script
      path: build.sh
      parameters: --release "out dir"

Relative paths are resolved against the batch file's directory.

Exit status is 1 when a function fails and 3 when a plugin crashed.

Examples:
  launchkit run shortcut ~/Desktop/notes.lnk
  launchkit run script ./build.sh --name "Build site" --params '--release'
  launchkit run --batch functions.yaml --parallel 4`,
	Args: func(cmd *cobra.Command, args []string) error {
		if runBatchFlag != "" {
			return cobra.NoArgs(cmd, args)
		}

		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runNameFlag, "name", "n", "", "Display name of the function")
	runCmd.Flags().StringVarP(&runParamsFlag, "params", "p", "", "Parameter string passed to the plugin")
	runCmd.Flags().BoolVar(&runForceFlag, "force", false, "Skip definition validation")
	runCmd.Flags().StringVar(&runBatchFlag, "batch", "", "Run the definitions listed in a YAML file")
	runCmd.Flags().IntVar(
		&runParallelFlag,
		"parallel",
		0,
		"Run batch definitions on up to N workers (0 runs them in order)",
	)
	runCmd.Flags().BoolVar(&runJSONFlag, "json", false, "Print results as JSON")
}

// batchFile is the YAML layout read by --batch.
type batchFile struct {
	Functions []batchEntry `yaml:"functions"`
}

type batchEntry struct {
	DisplayName string `yaml:"display_name"`
	Plugin      string `yaml:"plugin"`
	Path        string `yaml:"path"`
	Parameters  string `yaml:"parameters"`
}

// runReport is the JSON form of one dispatched definition.
type runReport struct {
	DisplayName string              `json:"display_name"`
	Plugin      string              `json:"plugin"`
	Path        string              `json:"path"`
	Completed   bool                `json:"completed"`
	Elapsed     string              `json:"elapsed,omitempty"`
	Diagnostics []plugin.Diagnostic `json:"diagnostics,omitempty"`
	Error       string              `json:"error,omitempty"`
	CrashDump   string              `json:"crash_dump,omitempty"`
}

func runRun(cmd *cobra.Command, args []string) error {
	env, err := setupEnvironment("run")
	if err != nil {
		return err
	}
	defer env.Close()

	defs, err := collectDefinitions(args)
	if err != nil {
		return err
	}

	registry, loadErr := env.loadRegistry()
	defer registry.Close() //nolint:errcheck // best effort on exit

	reportLoadErrors(cmd.ErrOrStderr(), loadErr)

	opts := []dispatcher.DispatcherOption{dispatcher.WithForce(runForceFlag)}
	if runParallelFlag > 0 {
		opts = append(opts, dispatcher.WithExecutor(
			dispatcher.NewParallelExecutor(env.log, runParallelFlag),
		))
	}

	disp := dispatcher.NewDispatcher(registry, env.log, opts...)

	ctx := context.Background()

	if timeout := env.cfg.GetGlobal().DefaultTimeout.ToDuration(); timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var results []dispatcher.Result

	if len(defs) == 1 {
		crashContext = contextInfo(defs[0])

		outcome, err := disp.Dispatch(ctx, defs[0])
		results = []dispatcher.Result{{Definition: defs[0], Outcome: outcome, Err: err}}

		crashContext = nil
	} else {
		results = disp.DispatchAll(ctx, defs)
	}

	reports, code := summarizeResults(results)

	if runJSONFlag {
		if err := writeJSON(cmd.OutOrStdout(), reports); err != nil {
			return err
		}
	} else {
		printReports(cmd.OutOrStdout(), cmd.ErrOrStderr(), reports, env.theme(os.Stdout))
	}

	if code != ExitCodeOK {
		return exitWith(code, nil)
	}

	return nil
}

// collectDefinitions builds the definitions from the arguments or the batch
// file.
func collectDefinitions(args []string) ([]dispatcher.Definition, error) {
	if runBatchFlag != "" {
		return readBatch(runBatchFlag)
	}

	name := runNameFlag
	if name == "" {
		name = defaultDisplayName(args[0], args[1])
	}

	return []dispatcher.Definition{{
		DisplayName: name,
		Plugin:      args[0],
		Path:        args[1],
		Parameters:  runParamsFlag,
	}}, nil
}

// defaultDisplayName derives a display name from the plugin and the file,
// cut to the longest valid display name.
func defaultDisplayName(pluginName, path string) string {
	name := []rune(pluginName + " " + filepath.Base(path))
	if len(name) > maxDefaultNameRunes {
		name = name[:maxDefaultNameRunes]
	}

	return string(name)
}

func readBatch(path string) ([]dispatcher.Definition, error) {
	//nolint:gosec // batch file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read batch file %s", path)
	}

	var batch batchFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, errors.Wrapf(err, "failed to parse batch file %s", path)
	}

	if len(batch.Functions) == 0 {
		return nil, errors.Newf("batch file %s lists no functions", path)
	}

	base := filepath.Dir(path)
	defs := make([]dispatcher.Definition, 0, len(batch.Functions))

	for _, e := range batch.Functions {
		target := e.Path
		if target != "" && !filepath.IsAbs(target) {
			target = filepath.Join(base, target)
		}

		defs = append(defs, dispatcher.Definition{
			DisplayName: e.DisplayName,
			Plugin:      e.Plugin,
			Path:        target,
			Parameters:  e.Parameters,
		})
	}

	return defs, nil
}

func contextInfo(def dispatcher.Definition) *crashdump.ContextInfo {
	return &crashdump.ContextInfo{
		Plugin:      def.Plugin,
		DisplayName: def.DisplayName,
		FilePath:    def.Path,
		Parameters:  def.Parameters,
	}
}

// summarizeResults turns results into reports, records a crash dump for
// every plugin panic and picks the exit code.
func summarizeResults(results []dispatcher.Result) ([]runReport, int) {
	reports := make([]runReport, 0, len(results))
	code := ExitCodeOK

	for _, res := range results {
		report := runReport{
			DisplayName: res.Definition.DisplayName,
			Plugin:      res.Definition.Plugin,
			Path:        res.Definition.Path,
		}

		if res.Outcome != nil {
			report.Plugin = res.Outcome.Plugin
			report.Completed = res.Outcome.Completed
			report.Elapsed = res.Outcome.Elapsed.Round(time.Millisecond).String()
			report.Diagnostics = res.Outcome.Diagnostics
		}

		if res.Err != nil {
			report.Error = res.Err.Error()

			if code == ExitCodeOK {
				code = ExitCodeError
			}

			var fatal *plugin.FatalError
			if errors.As(res.Err, &fatal) {
				code = ExitCodeCrash
				report.CrashDump = recordFatal(fatal, res.Definition)
			}
		}

		reports = append(reports, report)
	}

	return reports, code
}

func recordFatal(fatal *plugin.FatalError, def dispatcher.Definition) string {
	if crashRecorder == nil {
		return ""
	}

	info := contextInfo(def)
	info.Plugin = fatal.Plugin

	path, err := crashRecorder.RecordWithStack(fatal.Value, fatal.Stack, info)
	if err != nil {
		return ""
	}

	return path
}

func printReports(out, errOut io.Writer, reports []runReport, theme internalcolor.Theme) {
	for _, r := range reports {
		ok := r.Error == ""
		icon := theme.Status(ok, "✓")

		if !ok {
			icon = theme.Status(false, "✗")
		}

		fmt.Fprintf(out, "%s %s (%s)", icon, theme.Name.Render(r.DisplayName), r.Plugin)

		if r.Elapsed != "" {
			fmt.Fprintf(out, " %s", theme.Muted.Render(r.Elapsed))
		}

		fmt.Fprintln(out)

		for _, d := range r.Diagnostics {
			fmt.Fprintf(out, "  [%s] %s\n", d.Channel, d.Payload)
		}

		if !ok {
			fmt.Fprintf(errOut, "  %s\n", theme.Failure.Render(r.Error))
		}

		if r.CrashDump != "" {
			fmt.Fprintf(errOut, "  crash dump saved to: %s\n", r.CrashDump)
		}
	}
}
