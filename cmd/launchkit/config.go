package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	internalconfig "github.com/smykla-skalski/launchkit/internal/config"
	"github.com/smykla-skalski/launchkit/internal/schema"
)

var (
	configGlobalFlag bool
	configForceFlag  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage launchkit configuration",
	Long: `Manage launchkit configuration files.

Configuration is merged from defaults, the global file
($XDG_CONFIG_HOME/launchkit/config.toml), the project file
(.launchkit/config.toml or launchkit.toml), LAUNCHKIT_* environment
variables and command-line flags, in that order.

Subcommands:
  init      Write a default configuration file
  show      Print the merged configuration
  path      Print configuration file locations
  validate  Validate the merged configuration or one file`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to the project file, or to the global file
with --global. Existing files are kept unless --force is given.

Examples:
  launchkit config init
  launchkit config init --global
  launchkit config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration as TOML",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration file locations",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate configuration",
	Long: `Validate the merged configuration, or a single file when one is given.

Examples:
  launchkit config validate
  launchkit config validate ./launchkit.toml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd, configValidateCmd)

	configInitCmd.Flags().BoolVarP(&configGlobalFlag, "global", "g", false, "Write the global configuration file")
	configInitCmd.Flags().BoolVarP(&configForceFlag, "force", "f", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	writer, err := internalconfig.NewWriter()
	if err != nil {
		return err
	}

	path := writer.ProjectConfigPath()
	exists := writer.IsProjectConfigExists()

	if configGlobalFlag {
		path = writer.GlobalConfigPath()
		exists = writer.IsGlobalConfigExists()
	}

	if exists && !configForceFlag {
		return errors.Newf("configuration already exists at %s (use --force to overwrite)", path)
	}

	cfg := internalconfig.DefaultConfig()

	if configGlobalFlag {
		err = writer.WriteGlobal(cfg)
	} else {
		err = writer.WriteProject(cfg)
	}

	if err != nil {
		return errors.Wrap(err, "failed to write configuration")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	loader, err := internalconfig.NewKoanfLoader()
	if err != nil {
		return errors.Wrap(err, "failed to create config loader")
	}

	cfg, err := loader.Load(buildFlagsMap())
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	data, err := internalconfig.Encode(cfg)
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(data)

	return errors.Wrap(err, "failed to write configuration")
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	loader, err := internalconfig.NewKoanfLoader()
	if err != nil {
		return errors.Wrap(err, "failed to create config loader")
	}

	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "global:  %s%s\n", loader.GlobalConfigPath(), missingSuffix(loader.HasGlobalConfig()))

	if project := loader.FindProjectConfigPath(); project != "" {
		fmt.Fprintf(out, "project: %s\n", project)
	} else {
		for _, p := range loader.ProjectConfigPaths() {
			fmt.Fprintf(out, "project: %s (missing)\n", p)
		}
	}

	fmt.Fprintf(out, "plugins: %s\n", loader.DefaultPluginDir())

	return nil
}

func missingSuffix(exists bool) string {
	if exists {
		return ""
	}

	return " (missing)"
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	loader, err := internalconfig.NewKoanfLoader()
	if err != nil {
		return errors.Wrap(err, "failed to create config loader")
	}

	if len(args) == 0 {
		if _, err := loader.Load(buildFlagsMap()); err != nil {
			return exitWith(ExitCodeError, err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")

		return nil
	}

	cfg, err := loader.LoadFile(args[0])
	if err != nil {
		return exitWith(ExitCodeError, err)
	}

	if err := internalconfig.NewValidator().Validate(cfg); err != nil {
		return exitWith(ExitCodeError, err)
	}

	violations, err := schema.CheckFile(args[0])
	if err != nil {
		return exitWith(ExitCodeError, err)
	}

	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", v)
		}

		return exitWith(ExitCodeError, errors.Newf("%s does not match the configuration schema", args[0]))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])

	return nil
}
