package plugin

import (
	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/functions"
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

// BuiltinLoader constructs plugins compiled into launchkit. The instance name
// selects the catalog entry.
type BuiltinLoader struct {
	deps functions.Dependencies
}

// NewBuiltinLoader creates a loader for built-in plugins.
func NewBuiltinLoader(deps functions.Dependencies) *BuiltinLoader {
	return &BuiltinLoader{deps: deps}
}

// Load implements Loader.
//
//nolint:ireturn // interface return is required by Loader interface
func (l *BuiltinLoader) Load(cfg *config.PluginInstanceConfig) (function.Function, error) {
	fn, err := functions.New(cfg.Name, l.deps)
	if err != nil {
		return nil, errors.Wrap(err, "loading built-in plugin")
	}

	return fn, nil
}

// Close implements Loader.
func (*BuiltinLoader) Close() error {
	return nil
}
