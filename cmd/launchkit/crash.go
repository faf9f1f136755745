package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/smykla-skalski/launchkit/internal/crashdump"
	"github.com/smykla-skalski/launchkit/internal/xdg"
)

const (
	unlimitedStr         = "unlimited"
	durationDisplayUnits = 2
	panicColumnWidth     = 48
)

var (
	dryRunFlag   bool
	cleanAllFlag bool
)

var crashCmd = &cobra.Command{
	Use:   "crash",
	Short: "Manage crash dumps",
	Long: `Manage crash dumps written when launchkit or a plugin panics.

Subcommands:
  list   List crash dumps
  view   View crash dump details
  clean  Remove old crash dumps`,
}

var crashListCmd = &cobra.Command{
	Use:   "list",
	Short: "List crash dumps",
	Long: `List all crash dumps with timestamps and panic values, newest first.

Examples:
  launchkit crash list`,
	Args: cobra.NoArgs,
	RunE: runCrashList,
}

var crashViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View crash dump details",
	Long: `View detailed information about a specific crash dump.

Displays full crash information including stack trace, runtime info,
the function being run, and sanitized configuration.

Examples:
  launchkit crash view crash-20251204T160432-a1b2c3`,
	Args: cobra.ExactArgs(1),
	RunE: runCrashView,
}

var crashCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old crash dumps",
	Long: `Remove crash dumps that exceed the configured maximum count or age.
Uses crash_dump.max_dumps and crash_dump.max_age.

Examples:
  launchkit crash clean            # Clean based on config
  launchkit crash clean --dry-run  # Show what would be removed
  launchkit crash clean --all      # Remove every dump`,
	Args: cobra.NoArgs,
	RunE: runCrashClean,
}

func init() {
	rootCmd.AddCommand(crashCmd)
	crashCmd.AddCommand(crashListCmd, crashViewCmd, crashCleanCmd)

	crashCleanCmd.Flags().BoolVar(
		&dryRunFlag,
		"dry-run",
		false,
		"Show what would be removed without actually deleting",
	)
	crashCleanCmd.Flags().BoolVar(&cleanAllFlag, "all", false, "Remove all crash dumps")
}

// openCrashStorage returns the dump storage and its directory.
func openCrashStorage(env *environment) (*crashdump.FilesystemStorage, string, error) {
	dir := env.cfg.GetCrashDump().GetDumpDir(xdg.CrashDumpDir())

	storage, err := crashdump.NewFilesystemStorage(dir)
	if err != nil {
		return nil, dir, errors.Wrap(err, "failed to create storage")
	}

	return storage, dir, nil
}

func runCrashList(cmd *cobra.Command, _ []string) error {
	env, err := setupLenientEnvironment("crash list")
	if err != nil {
		return err
	}
	defer env.Close()

	storage, dir, err := openCrashStorage(env)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if !storage.Exists() {
		fmt.Fprintln(out, "No crash dumps found.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Crash dumps will be stored in: %s\n", dir)

		return nil
	}

	summaries, err := storage.List()
	if err != nil {
		return errors.Wrap(err, "failed to list crash dumps")
	}

	if len(summaries) == 0 {
		fmt.Fprintln(out, "No crash dumps found.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Directory: %s\n", dir)

		return nil
	}

	fmt.Fprintf(out, "Directory: %s\n", dir)
	fmt.Fprintf(out, "Total: %d\n\n", len(summaries))

	renderCrashTable(out, summaries, time.Now())

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  launchkit crash view <id>    # View full details")
	fmt.Fprintln(out, "  launchkit crash clean        # Remove old dumps")

	return nil
}

func renderCrashTable(w io.Writer, summaries []crashdump.DumpSummary, now time.Time) {
	t := tablewriter.NewTable(w)
	t.Header([]string{"ID", "Age", "Plugin", "Panic", "Size"})

	for _, s := range summaries {
		plugin := s.Plugin
		if plugin == "" {
			plugin = "-"
		}

		_ = t.Append([]string{
			s.ID,
			humanize.RelTime(s.Timestamp, now, "ago", "from now"),
			plugin,
			truncate(s.PanicValue, panicColumnWidth),
			formatSize(s.Size),
		})
	}

	_ = t.Render()
}

func formatSize(size int64) string {
	if size < 0 {
		return "unknown"
	}

	return humanize.Bytes(uint64(size))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")

	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}

func runCrashView(cmd *cobra.Command, args []string) error {
	env, err := setupLenientEnvironment("crash view")
	if err != nil {
		return err
	}
	defer env.Close()

	storage, _, err := openCrashStorage(env)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	info, err := storage.Get(args[0])
	if err != nil {
		if errors.Is(err, crashdump.ErrDumpNotFound) {
			fmt.Fprintf(out, "Crash dump not found: %s\n", args[0])
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Use 'launchkit crash list' to see available dumps.")

			return exitWith(ExitCodeError, nil)
		}

		return errors.Wrap(err, "failed to get crash dump")
	}

	displayCrashDump(out, info)

	return nil
}

func displayCrashDump(out io.Writer, info *crashdump.CrashInfo) {
	fmt.Fprintln(out, "Crash Dump Details")
	fmt.Fprintln(out, "==================")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "ID: %s\n", info.ID)
	fmt.Fprintf(out, "Timestamp: %s\n", info.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Panic Value: %s\n", info.PanicValue)
	fmt.Fprintln(out)

	section(out, "Runtime")
	fmt.Fprintf(out, "  Go Version: %s\n", info.Runtime.GoVersion)
	fmt.Fprintf(out, "  OS/Arch: %s/%s\n", info.Runtime.GOOS, info.Runtime.GOARCH)
	fmt.Fprintf(out, "  NumCPU: %d\n", info.Runtime.NumCPU)
	fmt.Fprintf(out, "  NumGoroutine: %d\n", info.Runtime.NumGoroutine)
	fmt.Fprintln(out)

	section(out, "Metadata")
	printIfSet(out, "Version", info.Metadata.Version)
	printIfSet(out, "User", info.Metadata.User)
	printIfSet(out, "Hostname", info.Metadata.Hostname)
	printIfSet(out, "Working Dir", info.Metadata.WorkingDir)
	fmt.Fprintln(out)

	if ctx := info.Context; ctx != nil {
		section(out, "Function")
		fmt.Fprintf(out, "  Plugin: %s\n", ctx.Plugin)
		printIfSet(out, "Display Name", ctx.DisplayName)
		printIfSet(out, "File Path", ctx.FilePath)
		printIfSet(out, "Parameters", ctx.Parameters)
		fmt.Fprintln(out)
	}

	if len(info.Config) > 0 {
		section(out, "Configuration Snapshot")

		data, err := json.MarshalIndent(info.Config, "  ", "  ")
		if err != nil {
			fmt.Fprintf(out, "  (failed to format config: %v)\n", err)
		} else {
			fmt.Fprintf(out, "  %s\n", data)
		}

		fmt.Fprintln(out)
	}

	section(out, "Stack Trace")

	for line := range strings.SplitSeq(info.StackTrace, "\n") {
		if line != "" {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}

	fmt.Fprintln(out)
}

func section(out io.Writer, title string) {
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, strings.Repeat("-", len(title)))
}

func printIfSet(out io.Writer, label, value string) {
	if value != "" {
		fmt.Fprintf(out, "  %s: %s\n", label, value)
	}
}

func runCrashClean(cmd *cobra.Command, _ []string) error {
	env, err := setupLenientEnvironment("crash clean")
	if err != nil {
		return err
	}
	defer env.Close()

	storage, dir, err := openCrashStorage(env)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if !storage.Exists() {
		fmt.Fprintln(out, "No crash dumps directory found.")

		return nil
	}

	crashCfg := env.cfg.GetCrashDump()
	maxDumps, maxAge := crashCfg.Retention()

	if cleanAllFlag {
		maxDumps, maxAge = 0, 0
	}

	if dryRunFlag {
		return dryRunClean(out, storage, maxDumps, maxAge)
	}

	removed, err := storage.Prune(maxDumps, maxAge)
	if err != nil {
		return errors.Wrap(err, "failed to prune crash dumps")
	}

	fmt.Fprintln(out, "Crash Dumps Cleanup")
	fmt.Fprintln(out, "===================")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Directory: %s\n", dir)
	fmt.Fprintf(out, "Retention: %s\n", formatRetention(maxDumps, maxAge))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Removed: %d dump(s)\n", removed)

	return nil
}

func dryRunClean(out io.Writer, storage crashdump.Storage, maxDumps int, maxAge time.Duration) error {
	summaries, err := storage.List()
	if err != nil {
		return errors.Wrap(err, "failed to list crash dumps")
	}

	if len(summaries) == 0 {
		fmt.Fprintln(out, "No crash dumps found.")

		return nil
	}

	now := time.Now()
	toRemove := crashdump.Expired(summaries, maxDumps, maxAge, now)

	fmt.Fprintln(out, "Crash Dumps Cleanup (Dry Run)")
	fmt.Fprintln(out, "=============================")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Retention: %s\n", formatRetention(maxDumps, maxAge))
	fmt.Fprintln(out)

	if len(toRemove) == 0 {
		fmt.Fprintln(out, "No dumps would be removed.")

		return nil
	}

	fmt.Fprintf(out, "Would remove %d dump(s):\n", len(toRemove))
	fmt.Fprintln(out)

	for _, summary := range toRemove {
		fmt.Fprintf(out, "  - %s (age: %s)\n", summary.ID, formatDuration(now.Sub(summary.Timestamp)))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Run without --dry-run to actually remove these dumps.")

	return nil
}

func formatRetention(maxDumps int, maxAge time.Duration) string {
	if maxDumps == 0 && maxAge == 0 {
		return "none (removing all)"
	}

	return fmt.Sprintf("%d dumps, %s age", maxDumps, formatDuration(maxAge))
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return unlimitedStr
	}

	return durafmt.Parse(d).LimitFirstN(durationDisplayUnits).String()
}
