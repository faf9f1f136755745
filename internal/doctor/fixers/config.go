package fixers

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/config"
	"github.com/smykla-skalski/launchkit/internal/doctor"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

// ConfigFixer creates a missing global configuration file with default values.
type ConfigFixer struct {
	writer *config.Writer
	log    logger.Logger
}

// NewConfigFixer creates a new ConfigFixer.
func NewConfigFixer(writer *config.Writer, log logger.Logger) *ConfigFixer {
	return &ConfigFixer{writer: writer, log: log}
}

// ID returns the fixer identifier.
func (*ConfigFixer) ID() string {
	return doctor.FixCreateGlobalConfig
}

// Description returns a human-readable description.
func (*ConfigFixer) Description() string {
	return "Create the global configuration file with default values"
}

// Fix writes the default config unless a global config already exists.
func (f *ConfigFixer) Fix(_ context.Context, _ bool) error {
	if f.writer.IsGlobalConfigExists() {
		return nil
	}

	if err := f.writer.WriteGlobal(config.DefaultConfig()); err != nil {
		return errors.Wrap(err, "failed to write global config")
	}

	f.log.Info("global config created", "path", f.writer.GlobalConfigPath())

	return nil
}
