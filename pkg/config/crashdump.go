package config

import "time"

// Crash dump retention defaults.
const (
	DefaultMaxDumps   = 10
	DefaultMaxAgeDays = 30
)

// CrashDumpConfig is the [crash_dump] section. It controls whether plugin
// panics are recorded and how long the records are kept:
//
//	[crash_dump]
//	dump_dir = "~/.local/state/launchkit/crash_dumps"
//	max_dumps = 10
//	max_age = "30d"
//	include_config = false
//
// A max_dumps of 0 keeps nothing, an unset or zero max_age means the default.
type CrashDumpConfig struct {
	Enabled       *bool    `json:"enabled,omitempty"        koanf:"enabled"        toml:"enabled,omitempty"`
	DumpDir       *string  `json:"dump_dir,omitempty"       koanf:"dump_dir"       toml:"dump_dir,omitempty"`
	MaxDumps      *int     `json:"max_dumps,omitempty"      koanf:"max_dumps"      toml:"max_dumps,omitempty"      jsonschema:"minimum=0"`
	MaxAge        Duration `json:"max_age,omitempty"        koanf:"max_age"        toml:"max_age,omitempty"`
	IncludeConfig *bool    `json:"include_config,omitempty" koanf:"include_config" toml:"include_config,omitempty"`
}

func (c *CrashDumpConfig) IsEnabled() bool {
	return c == nil || c.Enabled == nil || *c.Enabled
}

// IsIncludeConfig reports whether dumps carry the sanitized configuration.
func (c *CrashDumpConfig) IsIncludeConfig() bool {
	return c == nil || c.IncludeConfig == nil || *c.IncludeConfig
}

// GetDumpDir returns the configured directory with "~" expanded, or fallback.
func (c *CrashDumpConfig) GetDumpDir(fallback string) string {
	if c == nil || c.DumpDir == nil || *c.DumpDir == "" {
		return fallback
	}

	return ExpandHome(*c.DumpDir)
}

func (c *CrashDumpConfig) GetMaxDumps() int {
	if c == nil || c.MaxDumps == nil {
		return DefaultMaxDumps
	}

	return *c.MaxDumps
}

func (c *CrashDumpConfig) GetMaxAge() Duration {
	if c == nil || c.MaxAge == 0 {
		return Duration(DefaultMaxAgeDays * Day)
	}

	return c.MaxAge
}

// Retention returns the dump count and age limits crash dumps are pruned to.
func (c *CrashDumpConfig) Retention() (int, time.Duration) {
	return c.GetMaxDumps(), c.GetMaxAge().ToDuration()
}
