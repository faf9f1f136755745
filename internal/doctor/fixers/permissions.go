package fixers

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/smykla-skalski/launchkit/internal/config"
	"github.com/smykla-skalski/launchkit/internal/doctor"
	configchecker "github.com/smykla-skalski/launchkit/internal/doctor/checkers/config"
	"github.com/smykla-skalski/launchkit/pkg/logger"
)

const configPermissions = 0o600

// PermissionsFixer removes group and world write access from config files.
type PermissionsFixer struct {
	loader *config.KoanfLoader
	log    logger.Logger
}

// NewPermissionsFixer creates a new PermissionsFixer.
func NewPermissionsFixer(loader *config.KoanfLoader, log logger.Logger) *PermissionsFixer {
	return &PermissionsFixer{loader: loader, log: log}
}

// ID returns the fixer identifier.
func (*PermissionsFixer) ID() string {
	return doctor.FixConfigPermissions
}

// Description returns a human-readable description.
func (*PermissionsFixer) Description() string {
	return "Restrict configuration files to 0600"
}

// Fix corrects the permissions of the global and project config files.
func (f *PermissionsFixer) Fix(_ context.Context, _ bool) error {
	for _, path := range configchecker.ConfigFiles(f.loader) {
		info, err := os.Stat(path)
		if err != nil {
			return errors.Wrap(err, "failed to stat config file")
		}

		perm := info.Mode().Perm()
		if perm&0o022 == 0 {
			continue
		}

		if err := os.Chmod(path, configPermissions); err != nil {
			return errors.Wrapf(err, "failed to change permissions of %s", path)
		}

		f.log.Info("config permissions fixed", "path", path, "from", perm.String())
	}

	return nil
}
