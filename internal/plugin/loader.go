package plugin

//go:generate mockgen -source=loader.go -destination=loader_mock.go -package=plugin

import (
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

// Loader loads function plugins from one kind of source (built-in catalog,
// Go plugins, executables, Lua scripts).
type Loader interface {
	// Load constructs the plugin described by cfg. The returned plugin is
	// not initialized yet.
	Load(cfg *config.PluginInstanceConfig) (function.Function, error)

	// Close releases any resources held by the loader.
	Close() error
}
