package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	internalcolor "github.com/smykla-skalski/launchkit/internal/color"
	"github.com/smykla-skalski/launchkit/internal/plugin"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

const descriptionWidth = 40

var pluginsJSONFlag bool

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Inspect loaded plugins",
	Long: `Inspect the plugins launchkit loads: the built-ins, the plugins declared in
the configuration and the manifests discovered in the plugin directory.

Subcommands:
  list   List loaded plugins
  info   Show one plugin in detail`,
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded plugins",
	Long: `List every plugin that loaded, sorted by name. Plugins that failed to
load are reported on stderr.

Examples:
  launchkit plugins list
  launchkit plugins list --json
  launchkit plugins list --no-builtins --plugin-dir ./plugins`,
	Args: cobra.NoArgs,
	RunE: runPluginsList,
}

var pluginsInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show plugin details",
	Long: `Show the descriptor, supported extensions and resolved settings of a plugin.

Examples:
  launchkit plugins info shortcut`,
	Args: cobra.ExactArgs(1),
	RunE: runPluginsInfo,
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
	pluginsCmd.AddCommand(pluginsListCmd, pluginsInfoCmd)

	pluginsListCmd.Flags().BoolVar(&pluginsJSONFlag, "json", false, "Print plugins as JSON")
	pluginsInfoCmd.Flags().BoolVar(&pluginsJSONFlag, "json", false, "Print the plugin as JSON")
}

// pluginSummary is the JSON form of a loaded plugin.
type pluginSummary struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Description string            `json:"description,omitempty"`
	Author      string            `json:"author,omitempty"`
	Version     string            `json:"version"`
	Type        string            `json:"type"`
	Path        string            `json:"path,omitempty"`
	State       string            `json:"state"`
	Active      bool              `json:"active"`
	Extensions  map[string]string `json:"extensions"`
	Settings    map[string]any    `json:"settings,omitempty"`
}

func summarize(inst *plugin.Instance) pluginSummary {
	d := inst.Descriptor()
	exts := make(map[string]string, len(d.SupportedExtensions()))

	for _, e := range d.SupportedExtensions() {
		exts[e.Label] = e.Extension
	}

	return pluginSummary{
		Name:        inst.Name(),
		DisplayName: d.DisplayName(),
		Description: d.Description(),
		Author:      d.Author(),
		Version:     d.Version().String(),
		Type:        string(inst.Config().Type),
		Path:        inst.Config().Path,
		State:       pluginState(inst),
		Active:      inst.Active(),
		Extensions:  exts,
		Settings:    inst.Settings(),
	}
}

func pluginState(inst *plugin.Instance) string {
	if inst.Faulted() != nil {
		return "faulted"
	}

	return inst.State().String()
}

func runPluginsList(cmd *cobra.Command, _ []string) error {
	env, err := setupEnvironment("plugins list")
	if err != nil {
		return err
	}
	defer env.Close()

	registry, loadErr := env.loadRegistry()
	defer registry.Close() //nolint:errcheck // best effort on exit

	reportLoadErrors(cmd.ErrOrStderr(), loadErr)

	instances := registry.List()
	out := cmd.OutOrStdout()

	if pluginsJSONFlag {
		summaries := make([]pluginSummary, 0, len(instances))
		for _, inst := range instances {
			summaries = append(summaries, summarize(inst))
		}

		return writeJSON(out, summaries)
	}

	if len(instances) == 0 {
		fmt.Fprintln(out, "No plugins loaded.")
		fmt.Fprintf(out, "Plugin directory: %s\n", env.pluginDir())

		return nil
	}

	fmt.Fprintln(out, renderPluginTable(instances, env.theme(os.Stdout)))

	return nil
}

func renderPluginTable(instances []*plugin.Instance, theme internalcolor.Theme) string {
	var buf strings.Builder

	t := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleLight),
		})),
		tablewriter.WithConfig(tablewriter.NewConfigBuilder().
			WithTrimSpace(tw.Off).
			Build()),
	)

	t.Header([]string{"Name", "Version", "Type", "Extensions", "State", "Description"})

	for _, inst := range instances {
		s := summarize(inst)

		name := theme.Name.Render(s.Name)
		if !s.Active {
			name = theme.Inactive.Render(s.Name)
		}

		_ = t.Append([]string{
			name,
			s.Version,
			s.Type,
			theme.Extension.Render(joinExtensions(inst.Descriptor())),
			theme.Status(s.Active, s.State),
			runewidth.Truncate(s.Description, descriptionWidth, "…"),
		})
	}

	_ = t.Render()

	return strings.TrimRight(buf.String(), "\n")
}

func joinExtensions(d function.Descriptor) string {
	exts := make([]string, 0, len(d.SupportedExtensions()))
	for _, e := range d.SupportedExtensions() {
		exts = append(exts, e.Extension)
	}

	sort.Strings(exts)

	return strings.Join(exts, " ")
}

func runPluginsInfo(cmd *cobra.Command, args []string) error {
	env, err := setupEnvironment("plugins info")
	if err != nil {
		return err
	}
	defer env.Close()

	registry, loadErr := env.loadRegistry()
	defer registry.Close() //nolint:errcheck // best effort on exit

	inst, ok := registry.Get(args[0])
	if !ok {
		reportLoadErrors(cmd.ErrOrStderr(), loadErr)

		return exitWith(ExitCodeError, errors.Wrapf(plugin.ErrPluginNotFound, "%q", args[0]))
	}

	out := cmd.OutOrStdout()

	if pluginsJSONFlag {
		return writeJSON(out, summarize(inst))
	}

	theme := env.theme(os.Stdout)
	d := inst.Descriptor()
	s := summarize(inst)

	fmt.Fprintf(out, "%s\n", theme.Header.Render(d.DisplayName()))
	fmt.Fprintf(out, "  Name:        %s\n", theme.Name.Render(s.Name))
	fmt.Fprintf(out, "  Version:     %s\n", s.Version)

	if s.Author != "" {
		fmt.Fprintf(out, "  Author:      %s\n", s.Author)
	}

	if s.Description != "" {
		fmt.Fprintf(out, "  Description: %s\n", s.Description)
	}

	fmt.Fprintf(out, "  Type:        %s\n", s.Type)

	if s.Path != "" {
		fmt.Fprintf(out, "  Path:        %s\n", theme.Path.Render(s.Path))
	}

	fmt.Fprintf(out, "  State:       %s\n", theme.Status(s.Active, s.State))
	fmt.Fprintf(out, "  Instance:    %s\n", theme.Muted.Render(inst.ID().String()))

	fmt.Fprintln(out, "  Extensions:")

	for _, e := range d.SupportedExtensions() {
		fmt.Fprintf(out, "    %s  %s\n", theme.Extension.Render(e.Extension), e.Label)
	}

	if d.Settings().Len() > 0 {
		fmt.Fprintln(out, "  Settings:")

		resolved := inst.Settings()

		for _, setting := range d.Settings().All() {
			fmt.Fprintf(out, "    %s (%s) = %v", setting.Name, setting.Type, resolved[setting.Name])

			if setting.Description != "" {
				fmt.Fprintf(out, "  %s", theme.Muted.Render(setting.Description))
			}

			fmt.Fprintln(out)
		}
	}

	if fault := inst.Faulted(); fault != nil {
		fmt.Fprintf(out, "  Fault:       %s\n", theme.Failure.Render(fault.Error()))
	}

	return nil
}

// reportLoadErrors prints one warning per plugin that failed to load.
func reportLoadErrors(w io.Writer, err error) {
	for _, leaf := range plugin.LoadFailures(err) {
		fmt.Fprintf(w, "Warning: %v\n", leaf)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}

	return nil
}
