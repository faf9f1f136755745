// Package functions is the catalog of built-in function plugins.
package functions

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/exec"
	"github.com/smykla-skalski/launchkit/internal/functions/script"
	"github.com/smykla-skalski/launchkit/internal/functions/shortcut"
	"github.com/smykla-skalski/launchkit/pkg/function"
)

// ErrUnknownBuiltin is returned when no built-in plugin has the requested name.
var ErrUnknownBuiltin = errors.New("unknown built-in function")

// Dependencies are the host services built-in plugins are constructed with.
type Dependencies struct {
	// Launcher opens resources with the platform handler.
	Launcher exec.Launcher

	// DirectLauncher starts executables and interpreters.
	DirectLauncher exec.Launcher
}

type constructor func(deps Dependencies) function.Function

var catalog = map[string]constructor{
	strings.ToLower(shortcut.Name): func(deps Dependencies) function.Function {
		return shortcut.New(deps.Launcher)
	},
	strings.ToLower(script.Name): func(deps Dependencies) function.Function {
		return script.New(deps.DirectLauncher)
	},
}

// DefaultDependencies returns dependencies backed by the real launchers.
func DefaultDependencies(opener []string) Dependencies {
	return Dependencies{
		Launcher:       exec.NewOpenerLauncher(exec.WithOpener(opener...)),
		DirectLauncher: exec.NewDirectLauncher(),
	}
}

// New constructs the built-in plugin called name. Names are matched
// case-insensitively. The returned plugin is not initialized.
//
//nolint:ireturn // plugins are used through their interface
func New(name string, deps Dependencies) (function.Function, error) {
	ctor, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBuiltin, "%q", name)
	}

	if deps.Launcher == nil {
		deps.Launcher = exec.NewOpenerLauncher()
	}

	if deps.DirectLauncher == nil {
		deps.DirectLauncher = exec.NewDirectLauncher()
	}

	return ctor(deps), nil
}

// Names returns the lower-case names of all built-in plugins, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}
