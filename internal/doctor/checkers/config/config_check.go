// Package config provides checkers for configuration file validation.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/config"
	"github.com/smykla-skalski/launchkit/internal/doctor"
)

const (
	globalCheckName      = "Global config valid"
	projectCheckName     = "Project config valid"
	permissionsCheckName = "Config file permissions secure"
)

// GlobalChecker checks the validity of the global configuration
type GlobalChecker struct {
	loader *config.KoanfLoader
}

// NewGlobalChecker creates a new global config checker
func NewGlobalChecker(loader *config.KoanfLoader) *GlobalChecker {
	return &GlobalChecker{loader: loader}
}

// Name returns the name of the check
func (*GlobalChecker) Name() string {
	return globalCheckName
}

// Category returns the category of the check
func (*GlobalChecker) Category() doctor.Category {
	return doctor.CategoryConfig
}

// Check performs the global config validity check
func (c *GlobalChecker) Check(_ context.Context) doctor.CheckResult {
	path := c.loader.GlobalConfigPath()

	result, ok := checkFile(globalCheckName, path, c.loader)
	if ok {
		return result
	}

	if result.Status == doctor.StatusSkipped {
		return doctor.FailWarning(globalCheckName, "Config file not found (optional)").
			WithDetails(
				"Expected at: "+path,
				"Create with: launchkit config init",
			).
			WithFixID(doctor.FixCreateGlobalConfig)
	}

	return result
}

// ProjectChecker checks the validity of the project configuration
type ProjectChecker struct {
	loader *config.KoanfLoader
}

// NewProjectChecker creates a new project config checker
func NewProjectChecker(loader *config.KoanfLoader) *ProjectChecker {
	return &ProjectChecker{loader: loader}
}

// Name returns the name of the check
func (*ProjectChecker) Name() string {
	return projectCheckName
}

// Category returns the category of the check
func (*ProjectChecker) Category() doctor.Category {
	return doctor.CategoryConfig
}

// Check performs the project config validity check
func (c *ProjectChecker) Check(_ context.Context) doctor.CheckResult {
	path := c.loader.FindProjectConfigPath()
	if path == "" {
		return doctor.Skip(projectCheckName, "No project config").
			WithDetails(fmt.Sprintf("Checked paths: %v", c.loader.ProjectConfigPaths()))
	}

	result, _ := checkFile(projectCheckName, path, c.loader)

	return result
}

// checkFile loads and validates path. The bool is true when the file exists.
func checkFile(name, path string, loader *config.KoanfLoader) (doctor.CheckResult, bool) {
	cfg, err := loader.LoadFile(path)

	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return doctor.Skip(name, "Config file not found"), false
	case errors.Is(err, config.ErrInvalidTOML):
		return doctor.FailError(name, "Invalid TOML syntax").
			WithDetails("File: "+path, fmt.Sprintf("Error: %v", err)), true
	case errors.Is(err, config.ErrInvalidPermissions):
		return doctor.FailError(name, "Insecure file permissions").
			WithDetails(
				"File: "+path,
				"Config file should not be world-writable",
				"Fix with: chmod 600 "+path,
			).
			WithFixID(doctor.FixConfigPermissions), true
	case err != nil:
		return doctor.FailError(name, fmt.Sprintf("Failed to load: %v", err)).
			WithDetails("File: "+path), true
	}

	if err := config.NewValidator().Validate(cfg); err != nil {
		return doctor.FailError(name, "Configuration validation failed").
			WithDetails("File: "+path, fmt.Sprintf("Error: %v", err)), true
	}

	return doctor.Pass(name, "Valid").WithDetails("File: " + path), true
}

// PermissionsChecker checks if config files have secure permissions
type PermissionsChecker struct {
	loader *config.KoanfLoader
}

// NewPermissionsChecker creates a new permissions checker
func NewPermissionsChecker(loader *config.KoanfLoader) *PermissionsChecker {
	return &PermissionsChecker{loader: loader}
}

// Name returns the name of the check
func (*PermissionsChecker) Name() string {
	return permissionsCheckName
}

// Category returns the category of the check
func (*PermissionsChecker) Category() doctor.Category {
	return doctor.CategoryConfig
}

// Check reports config files writable by group or others.
func (c *PermissionsChecker) Check(_ context.Context) doctor.CheckResult {
	paths := ConfigFiles(c.loader)
	if len(paths) == 0 {
		return doctor.Skip(permissionsCheckName, "No config files found")
	}

	var details []string

	severity := doctor.SeverityWarning

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return doctor.FailError(permissionsCheckName, fmt.Sprintf("Failed to stat %s: %v", path, err))
		}

		perm := info.Mode().Perm()
		if perm&0o022 == 0 {
			continue
		}

		if perm&0o002 != 0 {
			severity = doctor.SeverityError
		}

		details = append(details, fmt.Sprintf("%s: %04o", path, perm))
	}

	if len(details) == 0 {
		return doctor.Pass(permissionsCheckName, "Secure")
	}

	details = append(details, "Fix with: chmod 600 <config-file>")

	result := doctor.FailWarning(permissionsCheckName, "Config files are writable by other users")
	if severity == doctor.SeverityError {
		result = doctor.FailError(permissionsCheckName, "Config files are world-writable")
	}

	return result.WithDetails(details...).WithFixID(doctor.FixConfigPermissions)
}

// ConfigFiles returns the existing global and project config files.
func ConfigFiles(loader *config.KoanfLoader) []string {
	var paths []string

	if loader.HasGlobalConfig() {
		paths = append(paths, loader.GlobalConfigPath())
	}

	if project := loader.FindProjectConfigPath(); project != "" {
		paths = append(paths, project)
	}

	return paths
}
