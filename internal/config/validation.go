package config

import (
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/functions"
	"github.com/smykla-skalski/launchkit/pkg/config"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedVersion is returned for config schema versions this
	// build does not understand.
	ErrUnsupportedVersion = errors.New("unsupported config version")

	// ErrInvalidLogLevel is returned for unknown log level names.
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidPluginType is returned for unknown plugin types.
	ErrInvalidPluginType = errors.New("invalid plugin type")

	// ErrInvalidConstraint is returned when a version constraint cannot be parsed.
	ErrInvalidConstraint = errors.New("invalid version constraint")

	// ErrDuplicatePlugin is returned when two plugin entries share a name.
	ErrDuplicatePlugin = errors.New("duplicate plugin name")

	// ErrEmptyValue is returned when a required value is empty.
	ErrEmptyValue = errors.New("empty value not allowed")

	// ErrInvalidOption is returned when an option value is invalid.
	ErrInvalidOption = errors.New("invalid option value")
)

// pluginExtensions maps plugin types to the file extension their path must carry.
var pluginExtensions = map[config.PluginType]string{
	config.PluginTypeGo:  ".so",
	config.PluginTypeLua: ".lua",
}

// Validator validates configuration semantics.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the entire configuration.
// Returns an error describing all validation failures.
func (v *Validator) Validate(cfg *config.Config) error {
	if cfg == nil {
		return errors.WithMessage(ErrInvalidConfig, "config is nil")
	}

	var validationErrors []error

	if cfg.Version != 0 && cfg.Version != config.CurrentConfigVersion {
		validationErrors = append(validationErrors, errors.Wrapf(
			ErrUnsupportedVersion, "version %d, expected %d", cfg.Version, config.CurrentConfigVersion))
	}

	if cfg.Global != nil {
		if err := v.validateGlobalConfig(cfg.Global); err != nil {
			validationErrors = append(validationErrors, errors.Wrap(err, "global"))
		}
	}

	if cfg.Launcher != nil {
		if err := v.validateLauncherConfig(cfg.Launcher); err != nil {
			validationErrors = append(validationErrors, errors.Wrap(err, "launcher"))
		}
	}

	if cfg.Plugins != nil {
		if err := v.validatePluginConfig(cfg.Plugins); err != nil {
			validationErrors = append(validationErrors, err)
		}
	}

	if cfg.CrashDump != nil {
		if err := v.validateCrashDumpConfig(cfg.CrashDump); err != nil {
			validationErrors = append(validationErrors, errors.Wrap(err, "crash_dump"))
		}
	}

	if len(validationErrors) > 0 {
		return errors.Wrapf(
			errors.Mark(combineErrors(validationErrors), ErrInvalidConfig),
			"validation failed with %d error(s)",
			len(validationErrors),
		)
	}

	return nil
}

func (*Validator) validateGlobalConfig(cfg *config.GlobalConfig) error {
	if cfg.LogLevel == "" {
		return nil
	}

	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return errors.Wrapf(ErrInvalidLogLevel, "%q", cfg.LogLevel)
	}

	return nil
}

func (*Validator) validateLauncherConfig(cfg *config.LauncherConfig) error {
	if len(cfg.Opener) > 0 && strings.TrimSpace(cfg.Opener[0]) == "" {
		return errors.Wrap(ErrEmptyValue, "opener command")
	}

	return nil
}

// validatePluginConfig checks every plugin entry and reports all problems.
func (v *Validator) validatePluginConfig(cfg *config.PluginConfig) error {
	var (
		validationErrors []error
		seen             = make(map[string]int)
	)

	for i, p := range cfg.Plugins {
		field := "plugins.plugins[" + strconv.Itoa(i) + "]"

		if p == nil {
			validationErrors = append(validationErrors, errors.Wrap(ErrEmptyValue, field))

			continue
		}

		if err := v.validatePluginInstance(p); err != nil {
			validationErrors = append(validationErrors, errors.Wrap(err, field))
		}

		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			continue
		}

		if first, dup := seen[key]; dup {
			validationErrors = append(validationErrors, errors.Wrapf(
				ErrDuplicatePlugin, "%s: %q already used by plugins.plugins[%d]", field, p.Name, first))
		} else {
			seen[key] = i
		}
	}

	return combineErrors(validationErrors)
}

func (*Validator) validatePluginInstance(p *config.PluginInstanceConfig) error {
	var validationErrors []error

	if strings.TrimSpace(p.Name) == "" {
		validationErrors = append(validationErrors, errors.Wrap(ErrEmptyValue, "name"))
	}

	switch {
	case !p.Type.Valid():
		validationErrors = append(validationErrors, errors.Wrapf(
			ErrInvalidPluginType, "type %q, expected one of %v", p.Type, config.PluginTypes()))

	case p.Type == config.PluginTypeBuiltin:
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name != "" && !slices.Contains(functions.Names(), name) {
			validationErrors = append(validationErrors, errors.Wrapf(
				functions.ErrUnknownBuiltin, "name %q, expected one of %v", p.Name, functions.Names()))
		}

	case p.Path == "":
		validationErrors = append(validationErrors, errors.Wrapf(ErrEmptyValue, "path for %s plugin", p.Type))

	default:
		if want, ok := pluginExtensions[p.Type]; ok && !strings.EqualFold(filepath.Ext(p.Path), want) {
			validationErrors = append(validationErrors, errors.Wrapf(
				ErrInvalidOption, "path %s must end in %s", p.Path, want))
		}
	}

	if p.Requires != "" {
		if _, err := semver.NewConstraint(p.Requires); err != nil {
			validationErrors = append(validationErrors, errors.Wrapf(ErrInvalidConstraint, "requires %q", p.Requires))
		}
	}

	return combineErrors(validationErrors)
}

func (*Validator) validateCrashDumpConfig(cfg *config.CrashDumpConfig) error {
	if cfg.MaxDumps != nil && *cfg.MaxDumps < 0 {
		return errors.Wrapf(ErrInvalidOption, "max_dumps must be non-negative, got %d", *cfg.MaxDumps)
	}

	return nil
}

// combineErrors combines multiple errors into a single error.
func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return errors.Join(errs...)
}
