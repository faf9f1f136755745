// Package plugins provides checkers for plugin loading.
package plugins

import (
	"context"
	"fmt"

	"github.com/smykla-skalski/launchkit/internal/doctor"
	"github.com/smykla-skalski/launchkit/internal/plugin"
	"github.com/smykla-skalski/launchkit/pkg/config"
)

const loadCheckName = "Plugins load"

// RegistryFactory builds a fresh registry for one check run.
type RegistryFactory func() *plugin.Registry

// LoadChecker loads every configured, built-in and discovered plugin into a
// scratch registry and reports the ones that fail.
type LoadChecker struct {
	cfg         *config.PluginConfig
	dir         string
	newRegistry RegistryFactory
}

// NewLoadChecker creates a new plugin load checker.
func NewLoadChecker(cfg *config.PluginConfig, dir string, newRegistry RegistryFactory) *LoadChecker {
	return &LoadChecker{cfg: cfg, dir: dir, newRegistry: newRegistry}
}

// Name returns the name of the check
func (*LoadChecker) Name() string {
	return loadCheckName
}

// Category returns the category of the check
func (*LoadChecker) Category() doctor.Category {
	return doctor.CategoryPlugins
}

// Check loads all plugins and destroys them again.
func (c *LoadChecker) Check(_ context.Context) doctor.CheckResult {
	registry := c.newRegistry()
	defer func() { _ = registry.Close() }()

	loadErr := registry.LoadPlugins(c.cfg, c.dir)
	loaded := registry.List()

	var inactive []string

	for _, inst := range loaded {
		if !inst.Active() {
			inactive = append(inactive, inst.Name())
		}
	}

	if loadErr != nil {
		failures := plugin.LoadFailures(loadErr)

		details := make([]string, 0, len(failures)+1)
		for _, err := range failures {
			details = append(details, err.Error())
		}

		details = append(details, fmt.Sprintf("%d plugin(s) loaded despite the failures", len(loaded)))

		return doctor.FailError(loadCheckName, fmt.Sprintf("%d plugin failure(s)", len(failures))).
			WithDetails(details...)
	}

	if len(loaded) == 0 {
		return doctor.FailWarning(loadCheckName, "No plugins loaded").
			WithDetails(
				"Plugin directory: "+c.dir,
				"Enable built-ins or add plugins to the directory",
			)
	}

	result := doctor.Pass(loadCheckName, fmt.Sprintf("%d plugin(s) loaded", len(loaded)))
	if len(inactive) > 0 {
		result = result.WithDetails(fmt.Sprintf("Inactive: %v", inactive))
	}

	return result
}
