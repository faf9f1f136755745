package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	internalcolor "github.com/smykla-skalski/launchkit/internal/color"
	internalconfig "github.com/smykla-skalski/launchkit/internal/config"
	"github.com/smykla-skalski/launchkit/internal/crashdump"
	"github.com/smykla-skalski/launchkit/internal/doctor"
	configchecker "github.com/smykla-skalski/launchkit/internal/doctor/checkers/config"
	launcherchecker "github.com/smykla-skalski/launchkit/internal/doctor/checkers/launcher"
	pluginschecker "github.com/smykla-skalski/launchkit/internal/doctor/checkers/plugins"
	storagechecker "github.com/smykla-skalski/launchkit/internal/doctor/checkers/storage"
	"github.com/smykla-skalski/launchkit/internal/doctor/fixers"
	"github.com/smykla-skalski/launchkit/internal/doctor/reporters"
	"github.com/smykla-skalski/launchkit/internal/exec"
	"github.com/smykla-skalski/launchkit/internal/prompt"
	"github.com/smykla-skalski/launchkit/internal/xdg"
)

const (
	formatAuto   = "auto"
	formatSimple = "simple"
	formatTable  = "table"
)

var (
	verboseFlag     bool
	fixFlag         bool
	interactiveFlag bool
	categoryFlag    []string
	formatFlag      string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose launchkit setup and configuration",
	Long: `Diagnose launchkit setup and configuration issues.

Checks:
- Configuration file validity and permissions
- Plugin loading
- Opener availability
- Directories and crash dumps

Examples:
  launchkit doctor                     # Run all checks
  launchkit doctor --verbose           # Run with detailed output
  launchkit doctor --fix               # Automatically fix issues
  launchkit doctor --interactive       # Confirm each fix
  launchkit doctor --category plugins  # Check specific categories`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVarP(
		&verboseFlag,
		"verbose",
		"V",
		false,
		"Enable verbose output with detailed context",
	)

	doctorCmd.Flags().BoolVar(
		&fixFlag,
		"fix",
		false,
		"Automatically fix issues without prompting",
	)

	doctorCmd.Flags().BoolVarP(
		&interactiveFlag,
		"interactive",
		"i",
		false,
		"Confirm each fix before applying it",
	)

	doctorCmd.Flags().StringSliceVar(
		&categoryFlag,
		"category",
		[]string{},
		"Filter checks by category (config, plugins, launcher, storage)",
	)

	doctorCmd.Flags().StringVar(
		&formatFlag,
		"format",
		formatAuto,
		"Output format (auto, simple, table)",
	)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	if fixFlag && interactiveFlag {
		return errors.New("--fix and --interactive are mutually exclusive")
	}

	env, err := setupLenientEnvironment("doctor")
	if err != nil {
		return err
	}
	defer env.Close()

	env.log.Info("starting doctor command",
		"verbose", verboseFlag,
		"fix", fixFlag,
		"interactive", interactiveFlag,
		"categories", categoryFlag,
	)

	registry, err := buildDoctorRegistry(env)
	if err != nil {
		return err
	}

	reporter, err := selectReporter(env, formatFlag)
	if err != nil {
		return err
	}

	runner := doctor.NewRunner(registry, reporter, prompt.NewStdPrompter(), env.log)
	runner.SetOutput(cmd.OutOrStdout())

	opts := doctor.RunOptions{
		Verbose:     verboseFlag,
		AutoFix:     fixFlag,
		Interactive: interactiveFlag,
		Categories:  parseCategories(cmd, categoryFlag),
	}

	if err := runner.Run(context.Background(), opts); err != nil {
		if errors.Is(err, doctor.ErrChecksFailed) {
			return exitWith(ExitCodeError, nil)
		}

		return errors.Wrap(err, "doctor command failed")
	}

	return nil
}

// buildDoctorRegistry creates and populates the health check registry.
func buildDoctorRegistry(env *environment) (*doctor.Registry, error) {
	registry := doctor.NewRegistry()

	writer, err := internalconfig.NewWriter()
	if err != nil {
		return nil, err
	}

	crashCfg := env.cfg.GetCrashDump()
	maxDumps, maxAge := crashCfg.Retention()

	dumps, err := crashdump.NewFilesystemStorage(crashCfg.GetDumpDir(xdg.CrashDumpDir()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create crash dump storage")
	}

	dirs := storagechecker.NewDirChecker(storagechecker.DefaultDirs(env.pluginDir())...)
	opener := exec.NewOpenerLauncher(exec.WithOpener(env.cfg.GetLauncher().Opener...))

	// Config checkers
	registry.RegisterChecker(configchecker.NewGlobalChecker(env.loader))
	registry.RegisterChecker(configchecker.NewProjectChecker(env.loader))
	registry.RegisterChecker(configchecker.NewPermissionsChecker(env.loader))

	// Plugin checkers
	registry.RegisterChecker(pluginschecker.NewLoadChecker(
		env.cfg.GetPlugins(),
		env.pluginDir(),
		env.newRegistry,
	))

	// Launcher checkers
	registry.RegisterChecker(launcherchecker.NewOpenerChecker(opener, exec.NewToolChecker()))

	// Storage checkers
	registry.RegisterChecker(dirs)
	registry.RegisterChecker(storagechecker.NewCrashDumpChecker(dumps, maxDumps, maxAge))

	registry.RegisterFixer(fixers.NewDirFixer(env.log, dirs.Paths()...))
	registry.RegisterFixer(fixers.NewConfigFixer(writer, env.log))
	registry.RegisterFixer(fixers.NewPermissionsFixer(env.loader, env.log))
	registry.RegisterFixer(fixers.NewCrashDumpFixer(dumps, maxDumps, maxAge, env.log))

	return registry, nil
}

// parseCategories converts string category names to Category types.
func parseCategories(cmd *cobra.Command, names []string) []doctor.Category {
	if len(names) == 0 {
		return nil
	}

	known := make(map[string]doctor.Category)
	for _, c := range doctor.Categories() {
		known[string(c)] = c
	}

	var categories []doctor.Category

	for _, name := range names {
		if cat, ok := known[strings.ToLower(strings.TrimSpace(name))]; ok {
			categories = append(categories, cat)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: unknown category %q, ignoring\n", name)
		}
	}

	return categories
}

// selectReporter picks the reporter for format. auto renders the colored
// table on terminals with color and the plain checklist otherwise.
//
//nolint:ireturn // factory function selecting reporter implementation by environment
func selectReporter(env *environment, format string) (doctor.Reporter, error) {
	colorEnabled := env.colorEnabled(os.Stdout)
	theme := internalcolor.NewTheme(colorEnabled)

	switch format {
	case formatAuto:
		if colorEnabled {
			return reporters.NewColoredReporter(os.Stdout, theme), nil
		}

		return reporters.NewSimpleReporter(os.Stdout), nil
	case formatSimple:
		return reporters.NewSimpleReporter(os.Stdout), nil
	case formatTable:
		return reporters.NewColoredReporter(os.Stdout, theme), nil
	default:
		return nil, errors.Newf("unknown format %q (want auto, simple or table)", format)
	}
}
