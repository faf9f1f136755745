// Package config holds the types of launchkit config files. The same structs
// are decoded by koanf, encoded by go-toml and reflected into the JSON
// Schema, so every field carries koanf, toml and json tags.
package config

// CurrentConfigVersion is the latest config schema version.
const CurrentConfigVersion = 1

// Config represents the root configuration for launchkit.
type Config struct {
	// Version is the config schema version. Defaults to 1 when omitted.
	Version int `json:"version,omitempty" koanf:"version" toml:"version,omitempty"`

	// Global settings that apply to the whole host.
	Global *GlobalConfig `json:"global,omitempty" koanf:"global" toml:"global,omitempty"`

	// Launcher configures how resources are opened.
	Launcher *LauncherConfig `json:"launcher,omitempty" koanf:"launcher" toml:"launcher,omitempty"`

	// Plugins contains configuration for function plugins.
	Plugins *PluginConfig `json:"plugins,omitempty" koanf:"plugins" toml:"plugins,omitempty"`

	// CrashDump contains configuration for the crash dump system.
	CrashDump *CrashDumpConfig `json:"crash_dump,omitempty" koanf:"crash_dump" toml:"crash_dump,omitempty"`
}

// GlobalConfig contains global settings.
type GlobalConfig struct {
	// DefaultTimeout bounds host-side operations such as exec plugin calls.
	// Default: "10s"
	DefaultTimeout Duration `json:"default_timeout,omitempty" koanf:"default_timeout" toml:"default_timeout,omitempty"`

	// LogLevel is one of "debug", "info" or "error".
	// Default: "error"
	LogLevel string `json:"log_level,omitempty" koanf:"log_level" toml:"log_level,omitempty"`

	// LogFile overrides the log file location.
	// Default: "$XDG_STATE_HOME/launchkit/launchkit.log"
	LogFile string `json:"log_file,omitempty" koanf:"log_file" toml:"log_file,omitempty"`

	// NoColor disables colored CLI output.
	NoColor *bool `json:"no_color,omitempty" koanf:"no_color" toml:"no_color,omitempty"`
}

func (g *GlobalConfig) IsNoColor() bool {
	if g == nil || g.NoColor == nil {
		return false
	}

	return *g.NoColor
}

// section returns *p, allocating an empty section first when it is nil.
func section[T any](p **T) *T {
	if *p == nil {
		*p = new(T)
	}

	return *p
}

// The Get accessors never return nil; a missing section is added empty so
// callers can rely on its defaulting methods.

func (c *Config) GetGlobal() *GlobalConfig       { return section(&c.Global) }
func (c *Config) GetLauncher() *LauncherConfig   { return section(&c.Launcher) }
func (c *Config) GetPlugins() *PluginConfig      { return section(&c.Plugins) }
func (c *Config) GetCrashDump() *CrashDumpConfig { return section(&c.CrashDump) }
