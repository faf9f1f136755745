package xdg

import "path/filepath"

// PathResolver locates the global config and plugin directories. The config
// loader and writer take one so tests and `config init` can point them at a
// different home.
type PathResolver interface {
	GlobalConfigFile() string
	ConfigDir() string
	PluginDir() string
}

// DefaultResolver follows the XDG environment variables at call time.
func DefaultResolver() PathResolver {
	return envResolver{}
}

type envResolver struct{}

func (envResolver) GlobalConfigFile() string { return GlobalConfigFile() }
func (envResolver) ConfigDir() string        { return ConfigDir() }
func (envResolver) PluginDir() string        { return PluginDir() }

// ResolverFor lays paths out below homeDir with the XDG defaults, ignoring
// the environment.
func ResolverFor(homeDir string) PathResolver {
	return homeResolver(homeDir)
}

type homeResolver string

func (h homeResolver) ConfigDir() string {
	return filepath.Join(configKind.under(string(h)), appName)
}

func (h homeResolver) GlobalConfigFile() string {
	return filepath.Join(h.ConfigDir(), "config.toml")
}

func (h homeResolver) PluginDir() string {
	return filepath.Join(dataKind.under(string(h)), appName, "plugins")
}
