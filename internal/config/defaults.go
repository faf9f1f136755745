package config

import (
	"time"

	"github.com/smykla-skalski/launchkit/pkg/config"
)

const (
	// DefaultTimeout is the default timeout for host operations.
	DefaultTimeout = 10 * time.Second

	// DefaultPluginTimeout is the default timeout for plugin processes.
	DefaultPluginTimeout = 5 * time.Second

	// DefaultLogLevel is the log level used when none is configured.
	DefaultLogLevel = "error"
)

// DefaultConfig returns a Config with all default values populated.
func DefaultConfig() *config.Config {
	return &config.Config{
		Version:   config.CurrentConfigVersion,
		Global:    DefaultGlobalConfig(),
		Launcher:  &config.LauncherConfig{},
		Plugins:   DefaultPluginConfig(),
		CrashDump: DefaultCrashDumpConfig(),
	}
}

// DefaultGlobalConfig returns the default global configuration.
func DefaultGlobalConfig() *config.GlobalConfig {
	noColor := false

	return &config.GlobalConfig{
		DefaultTimeout: config.Duration(DefaultTimeout),
		LogLevel:       DefaultLogLevel,
		NoColor:        &noColor,
	}
}

// DefaultPluginConfig returns the default plugin configuration. The plugin
// directory is left empty and resolved against the XDG data directory.
func DefaultPluginConfig() *config.PluginConfig {
	discover := true
	builtins := true

	return &config.PluginConfig{
		Discover:       &discover,
		Builtins:       &builtins,
		DefaultTimeout: config.Duration(DefaultPluginTimeout),
		Plugins:        []*config.PluginInstanceConfig{},
	}
}

// DefaultCrashDumpConfig returns the default crash dump configuration.
func DefaultCrashDumpConfig() *config.CrashDumpConfig {
	enabled := true
	maxDumps := config.DefaultMaxDumps
	includeConfig := true

	return &config.CrashDumpConfig{
		Enabled:       &enabled,
		MaxDumps:      &maxDumps,
		MaxAge:        config.Duration(config.DefaultMaxAgeDays * 24 * time.Hour),
		IncludeConfig: &includeConfig,
	}
}
