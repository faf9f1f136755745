package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

const (
	// defaultPluginTimeout is the default timeout for plugin operations.
	defaultPluginTimeout = 5 * time.Second
)

// PluginConfig contains configuration for the plugin system.
//
// Example configuration:
//
//	[plugins]
//	directory = "~/.local/share/launchkit/plugins"
//	default_timeout = "5s"
//
//	[[plugins.plugins]]
//	name = "notes"
//	type = "exec"
//	path = "~/.local/share/launchkit/plugins/notes/notes.sh"
//	requires = ">= 1.0"
//
//	[plugins.plugins.settings]
//	editor = "vim"
type PluginConfig struct {
	// Directory is where plugins and their manifests are discovered.
	// Default: "$XDG_DATA_HOME/launchkit/plugins"
	Directory string `json:"directory,omitempty" koanf:"directory" toml:"directory,omitempty"`

	// Discover controls whether Directory is scanned for function manifests.
	// Default: true
	Discover *bool `json:"discover,omitempty" koanf:"discover" toml:"discover,omitempty"`

	// Builtins controls whether the built-in functions are loaded.
	// Default: true
	Builtins *bool `json:"builtins,omitempty" koanf:"builtins" toml:"builtins,omitempty"`

	// Plugins is the list of plugin configurations.
	Plugins []*PluginInstanceConfig `json:"plugins,omitempty" koanf:"plugins" toml:"plugins,omitempty"`

	// DefaultTimeout is the default timeout for plugin operations.
	// Default: "5s"
	DefaultTimeout Duration `json:"default_timeout,omitempty" koanf:"default_timeout" toml:"default_timeout,omitempty"`
}

// PluginInstanceConfig configures a single plugin instance.
type PluginInstanceConfig struct {
	// Name identifies this instance in logs and in the CLI. Built-in plugins
	// are addressed by their catalog name ("shortcut", "script").
	Name string `json:"name" koanf:"name" toml:"name"`

	// Type specifies the plugin type ("builtin", "go", "exec" or "lua").
	Type PluginType `json:"type" koanf:"type" toml:"type"`

	// Enabled controls whether this plugin is loaded at all.
	// Default: true
	Enabled *bool `json:"enabled,omitempty" koanf:"enabled" toml:"enabled,omitempty"`

	// Active controls whether the loaded plugin accepts invocations.
	// Default: true
	Active *bool `json:"active,omitempty" koanf:"active" toml:"active,omitempty"`

	// Path is the file path for Go, exec and Lua plugins.
	// Example: "~/.local/share/launchkit/plugins/open.so"
	Path string `json:"path,omitempty" koanf:"path" toml:"path,omitempty"`

	// Args are command-line arguments for exec plugins.
	Args []string `json:"args,omitempty" koanf:"args" toml:"args,omitempty"`

	// Timeout is the maximum time to wait for plugin operations.
	// Default: inherited from PluginConfig.DefaultTimeout
	Timeout Duration `json:"timeout,omitempty" koanf:"timeout" toml:"timeout,omitempty"`

	// Requires is a semver constraint the plugin version must satisfy.
	// Example: ">= 1.0, < 2"
	Requires string `json:"requires,omitempty" koanf:"requires" toml:"requires,omitempty"`

	// Settings are values for the settings the plugin declares.
	Settings map[string]any `json:"settings,omitempty" koanf:"settings" toml:"settings,omitempty"`

	// ProjectRoot is the directory relative paths are checked against. It is
	// set at runtime and never serialized.
	ProjectRoot string `json:"-" koanf:"-" toml:"-"`
}

// PluginType represents the type of plugin loader to use.
type PluginType string

const (
	// PluginTypeBuiltin selects a plugin compiled into launchkit.
	PluginTypeBuiltin PluginType = "builtin"

	// PluginTypeGo loads native Go plugins (.so files).
	PluginTypeGo PluginType = "go"

	// PluginTypeExec executes plugins as subprocesses with JSON I/O.
	PluginTypeExec PluginType = "exec"

	// PluginTypeLua runs plugins written in Lua.
	PluginTypeLua PluginType = "lua"
)

// PluginTypes lists all supported plugin types.
func PluginTypes() []PluginType {
	return []PluginType{PluginTypeBuiltin, PluginTypeGo, PluginTypeExec, PluginTypeLua}
}

// JSONSchema returns the JSON Schema for the PluginType type.
func (PluginType) JSONSchema() *jsonschema.Schema {
	types := PluginTypes()
	enum := make([]any, 0, len(types))

	for _, t := range types {
		enum = append(enum, string(t))
	}

	return &jsonschema.Schema{
		Type: "string",
		Enum: enum,
	}
}

// Valid reports whether t is a supported plugin type.
func (t PluginType) Valid() bool {
	switch t {
	case PluginTypeBuiltin, PluginTypeGo, PluginTypeExec, PluginTypeLua:
		return true
	default:
		return false
	}
}

// IsDiscoveryEnabled returns whether the plugin directory is scanned.
func (p *PluginConfig) IsDiscoveryEnabled() bool {
	if p == nil || p.Discover == nil {
		return true
	}

	return *p.Discover
}

// IsBuiltinsEnabled returns whether built-in plugins are loaded.
func (p *PluginConfig) IsBuiltinsEnabled() bool {
	if p == nil || p.Builtins == nil {
		return true
	}

	return *p.Builtins
}

// GetDefaultTimeout returns the default timeout for plugin operations.
func (p *PluginConfig) GetDefaultTimeout() time.Duration {
	if p == nil || p.DefaultTimeout == 0 {
		return defaultPluginTimeout
	}

	return time.Duration(p.DefaultTimeout)
}

// GetDirectory returns the plugin directory, falling back to fallback.
// A leading ~ is expanded to the user home directory.
func (p *PluginConfig) GetDirectory(fallback string) string {
	dir := fallback
	if p != nil && p.Directory != "" {
		dir = p.Directory
	}

	return ExpandHome(dir)
}

// IsInstanceEnabled returns whether this plugin instance is enabled.
func (c *PluginInstanceConfig) IsInstanceEnabled() bool {
	if c.Enabled == nil {
		return true
	}

	return *c.Enabled
}

// IsActive returns whether this plugin instance should be activated.
func (c *PluginInstanceConfig) IsActive() bool {
	if c.Active == nil {
		return true
	}

	return *c.Active
}

// GetTimeout returns the timeout for this plugin, falling back to the provided default.
func (c *PluginInstanceConfig) GetTimeout(defaultTimeout time.Duration) time.Duration {
	if c.Timeout == 0 {
		return defaultTimeout
	}

	return time.Duration(c.Timeout)
}

// ExpandHome expands a leading ~ to the user home directory. The path is
// returned unchanged when the home directory cannot be determined.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if len(path) == 1 {
		return homeDir
	}

	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, strings.TrimLeft(path[2:], `/\`))
	}

	return path
}
